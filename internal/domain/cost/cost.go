// Package cost estimates oracle spend for a plan of iteration sizes.
package cost

import (
	"errors"
	"fmt"
)

// ErrNegativeSize is returned for a plan with a negative iteration size.
var ErrNegativeSize = errors.New("iteration size must not be negative")

// Rates are token prices and per-call token estimates.
type Rates struct {
	InputPer1K       float64
	OutputPer1K      float64
	DiscoveryTokens  int
	InputTokensCase  int
	OutputTokensCase int
}

// DefaultRates returns the rates for the default model.
func DefaultRates() Rates {
	return Rates{
		InputPer1K:       0.003,
		OutputPer1K:      0.015,
		DiscoveryTokens:  3000,
		InputTokensCase:  1000,
		OutputTokensCase: 200,
	}
}

// Iteration is the estimate for one planned iteration.
type Iteration struct {
	Cases               int     `json:"cases"`
	SchemaDiscoveryCost float64 `json:"schema_discovery_cost"`
	ClassificationCost  float64 `json:"classification_cost"`
	TotalCost           float64 `json:"total_cost"`
}

// Plan is the estimate for every planned iteration.
type Plan struct {
	Iterations []Iteration `json:"iterations"`
	Total      float64     `json:"total_estimated_cost"`
}

// Estimate prices sizes in order. Schema discovery is only charged to the
// first iteration; later ones reuse the curated taxonomy.
func Estimate(sizes []int, r Rates) (Plan, error) {
	p := Plan{Iterations: make([]Iteration, 0, len(sizes))}
	for i, n := range sizes {
		if n < 0 {
			return Plan{}, fmt.Errorf("%w: iteration %d has %d", ErrNegativeSize, i+1, n)
		}
		it := Iteration{Cases: n}
		if i == 0 {
			it.SchemaDiscoveryCost = per1K(r.DiscoveryTokens) * (r.InputPer1K + r.OutputPer1K)
		}
		it.ClassificationCost = float64(n)*per1K(r.InputTokensCase)*r.InputPer1K +
			float64(n)*per1K(r.OutputTokensCase)*r.OutputPer1K
		it.TotalCost = it.SchemaDiscoveryCost + it.ClassificationCost
		p.Iterations = append(p.Iterations, it)
		p.Total += it.TotalCost
	}
	return p, nil
}

func per1K(tokens int) float64 { return float64(tokens) / 1000 }
