package orchestrator

import (
	"context"
	"fmt"

	"github.com/dusk-indust/analyst/internal/table"
)

// StageExecutor performs the three pipeline stages. Each method consumes the
// output of the previous one.
type StageExecutor interface {
	ResolveIntent(ctx context.Context, text string) (string, error)
	SynthesizeQuery(ctx context.Context, intent string) (string, error)
	FetchResults(ctx context.Context, query string) (table.ResultSet, error)
}

// StageFuncs adapts plain functions to StageExecutor. A nil function fails
// its stage.
type StageFuncs struct {
	Intent  func(ctx context.Context, text string) (string, error)
	Query   func(ctx context.Context, intent string) (string, error)
	Results func(ctx context.Context, query string) (table.ResultSet, error)
}

var _ StageExecutor = StageFuncs{}

func (f StageFuncs) ResolveIntent(ctx context.Context, text string) (string, error) {
	if f.Intent == nil {
		return "", fmt.Errorf("orchestrator: no executor for stage %s", StageIntent)
	}
	return f.Intent(ctx, text)
}

func (f StageFuncs) SynthesizeQuery(ctx context.Context, intent string) (string, error) {
	if f.Query == nil {
		return "", fmt.Errorf("orchestrator: no executor for stage %s", StageQuery)
	}
	return f.Query(ctx, intent)
}

func (f StageFuncs) FetchResults(ctx context.Context, query string) (table.ResultSet, error) {
	if f.Results == nil {
		return table.ResultSet{}, fmt.Errorf("orchestrator: no executor for stage %s", StageResults)
	}
	return f.Results(ctx, query)
}
