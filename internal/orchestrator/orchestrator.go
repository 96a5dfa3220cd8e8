package orchestrator

import (
	"context"
	"errors"
	"fmt"
)

// Stage identifies one step of the analysis pipeline.
type Stage int

const (
	StageNone    Stage = 0
	StageIntent  Stage = 1
	StageQuery   Stage = 2
	StageResults Stage = 3
)

var stageNames = [...]string{"", "intent", "query", "results"}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		if s == StageNone {
			return "none"
		}
		return stageNames[s]
	}
	return "unknown"
}

// Title returns the label the console shows above the stage output.
func (s Stage) Title() string {
	switch s {
	case StageIntent:
		return "Step 1: Understanding Intent"
	case StageQuery:
		return "Step 2: Generating SQL"
	case StageResults:
		return "Results"
	default:
		return ""
	}
}

// MarshalText encodes the stage by name so snapshots read well as JSON.
func (s Stage) MarshalText() ([]byte, error) {
	if s == StageNone {
		return []byte{}, nil
	}
	if s < 0 || int(s) >= len(stageNames) {
		return nil, fmt.Errorf("orchestrator: invalid stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText decodes a stage name produced by MarshalText.
func (s *Stage) UnmarshalText(b []byte) error {
	name := string(b)
	if name == "" {
		*s = StageNone
		return nil
	}
	for i, n := range stageNames {
		if i > 0 && n == name {
			*s = Stage(i)
			return nil
		}
	}
	return fmt.Errorf("orchestrator: unknown stage %q", name)
}

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageIntent, StageQuery, StageResults}

// FallbackErrorMessage is stored when a stage fails without a message.
const FallbackErrorMessage = "An unknown error occurred during the analysis."

var (
	// ErrEmptyQuery is returned by Run when the text is blank.
	ErrEmptyQuery = errors.New("orchestrator: query text is empty")

	// ErrBusy is returned by Run when another run is still in progress.
	ErrBusy = errors.New("orchestrator: a run is already in progress")

	// ErrClosed is returned by Run after the pipeline has been closed.
	ErrClosed = errors.New("orchestrator: pipeline closed")
)

// Orchestrator coordinates the analysis pipeline and exposes its state to
// the presentation layer.
type Orchestrator interface {
	// Submit starts a run for text. It is ignored, returning false, when
	// the text is blank or a run is already in progress.
	Submit(text string) (runID string, accepted bool)

	// TrySubmit is Submit reporting why a submission was ignored:
	// ErrEmptyQuery, ErrBusy or ErrClosed.
	TrySubmit(text string) (runID string, err error)

	// Run submits text and blocks until the run reaches Complete or Failed.
	Run(ctx context.Context, text string) (Snapshot, error)

	// State returns the current observable state.
	State() Snapshot

	// Subscribe returns a feed of snapshots, one per state transition, and a
	// function that ends the subscription.
	Subscribe() (<-chan Snapshot, func())
}
