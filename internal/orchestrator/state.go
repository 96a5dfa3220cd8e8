package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/dusk-indust/analyst/internal/table"
)

// Phase is the lifecycle position of the current run.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// IsTerminal reports whether a run in this phase has finished.
func (p Phase) IsTerminal() bool {
	return p == PhaseComplete || p == PhaseFailed
}

// RunState is a tagged variant: Idle, Running{Stage}, Complete or
// Failed{Message}. Stage is only set while running and Message only when
// failed, so two stages can never be busy at once.
type RunState struct {
	Phase   Phase  `json:"phase"`
	Stage   Stage  `json:"stage,omitempty"`
	Message string `json:"message,omitempty"`
}

func Idle() RunState { return RunState{Phase: PhaseIdle} }
func Running(stage Stage) RunState { return RunState{Phase: PhaseRunning, Stage: stage} }
func Complete() RunState { return RunState{Phase: PhaseComplete} }
func Failed(message string) RunState { return RunState{Phase: PhaseFailed, Message: message} }

// Active reports whether a stage is in progress.
func (s RunState) Active() bool { return s.Phase == PhaseRunning }

// Busy reports whether stage is the one currently in progress.
func (s RunState) Busy(stage Stage) bool {
	return s.Phase == PhaseRunning && s.Stage == stage
}

// BusyFlags are the per-stage loading indicators the console renders.
type BusyFlags struct {
	Intent  bool `json:"intent"`
	Query   bool `json:"query"`
	Results bool `json:"results"`
}

// Any reports whether any stage is busy.
func (b BusyFlags) Any() bool { return b.Intent || b.Query || b.Results }

// Flags derives the busy indicators from the state.
func (s RunState) Flags() BusyFlags {
	return BusyFlags{
		Intent:  s.Busy(StageIntent),
		Query:   s.Busy(StageQuery),
		Results: s.Busy(StageResults),
	}
}

// Snapshot is an immutable view of the pipeline. Artifact pointers are nil
// until their producing stage completes. The busy flags and the error
// message are not stored: State.Flags and State.Message derive them, and
// the JSON encoding adds them as "busy" and "error".
type Snapshot struct {
	RunID          string           `json:"runId,omitempty"`
	Query          string           `json:"query,omitempty"`
	State          RunState         `json:"state"`
	Intent         *string          `json:"intent"`
	SyntheticQuery *string          `json:"syntheticQuery"`
	Results        *table.ResultSet `json:"results"`
	StartedAt      time.Time        `json:"startedAt,omitzero"`
	FinishedAt     time.Time        `json:"finishedAt,omitzero"`
}

// MarshalJSON encodes s with the busy flags and error message derived from
// its state. Decoding ignores both; they are recomputed from "state".
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type snapshot Snapshot
	return json.Marshal(struct {
		snapshot
		Busy  BusyFlags `json:"busy"`
		Error string    `json:"error,omitempty"`
	}{
		snapshot: snapshot(s),
		Busy:     s.State.Flags(),
		Error:    s.State.Message,
	})
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Intent != nil {
		v := *s.Intent
		out.Intent = &v
	}
	if s.SyntheticQuery != nil {
		v := *s.SyntheticQuery
		out.SyntheticQuery = &v
	}
	if s.Results != nil {
		rs := s.Results.Clone()
		out.Results = &rs
	}
	return out
}

// Duration is the wall time of a finished run, or zero.
func (s Snapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
