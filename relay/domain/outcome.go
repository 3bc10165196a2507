package domain

import "time"

// Outcome is the terminal state of one event in the pipeline.
type Outcome string

const (
	OutcomeDropped  Outcome = "dropped"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeFailed   Outcome = "failed"
	OutcomeExecuted Outcome = "executed"
)

// PipelineObserver is notified when an event enters the pipeline and when it
// reaches a terminal state.
type PipelineObserver interface {
	Received(ev Event)
	Finished(ev Event, outcome Outcome, reason string, elapsed time.Duration)
}
