package oracle

import (
	"context"
	"errors"

	"github.com/okian/casetag/internal/domain/model"
)

// Sentinel kinds for oracle failures. Transports wrap one of them so the
// failure kind of the resulting error record can be derived with errors.Is.
var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrResponseMalformed = errors.New("malformed response")
	ErrNetwork           = errors.New("network error")
	ErrUnexpectedStatus  = errors.New("api error")
	ErrInvalidInput      = errors.New("invalid input")
)

// FailureKind maps an oracle error onto the record failure kind.
func FailureKind(err error) model.FailureKind {
	switch {
	case err == nil:
		return model.FailureNone
	case errors.Is(err, ErrAuthentication):
		return model.FailureAuthentication
	case errors.Is(err, ErrRateLimited):
		return model.FailureRateLimited
	case errors.Is(err, ErrResponseMalformed):
		return model.FailureResponseMalformed
	case errors.Is(err, ErrInvalidInput):
		return model.FailureInvalidInput
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return model.FailureNetwork
	default:
		return model.FailureAPI
	}
}

// Retryable reports whether a failure kind is worth another attempt.
func Retryable(kind model.FailureKind) bool {
	return kind == model.FailureRateLimited || kind == model.FailureNetwork
}
