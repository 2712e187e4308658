// Package types contains common types used across the application
package types

// Phase of an iteration run.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseResuming    Phase = "resuming"
	PhaseSampling    Phase = "sampling"
	PhaseSchemaReady Phase = "schema_ready"
	PhaseDispatching Phase = "dispatching"
	PhaseFlushing    Phase = "flushing"
	PhaseFinalizing  Phase = "finalizing"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// Progress is a point-in-time snapshot of the running iteration.
type Progress struct {
	RunID            string  `json:"run_id"`
	Iteration        string  `json:"iteration_name"`
	Phase            Phase   `json:"phase"`
	Target           int     `json:"total_target"`
	AlreadyProcessed int     `json:"already_processed"`
	Remaining        int     `json:"remaining_to_process"`
	Processed        int     `json:"processed"`
	Errors           int     `json:"errors"`
	BatchesCompleted int     `json:"batches_completed"`
	BatchesTotal     int     `json:"batches_total"`
	UpdatedAt        float64 `json:"updated_at"`
}

// Checkpoint is the persisted companion of the progress artifact.
type Checkpoint struct {
	RunID            string  `json:"run_id"`
	Iteration        string  `json:"iteration_name"`
	Target           int     `json:"total_target"`
	AlreadyProcessed int     `json:"already_processed"`
	Remaining        int     `json:"remaining_to_process"`
	Processed        int     `json:"processed"`
	BatchesCompleted int     `json:"batches_completed"`
	Timestamp        float64 `json:"timestamp"`
}
