package mock

import (
	"context"
	"fmt"

	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/dusk-indust/analyst/internal/table"
	"go.uber.org/zap"
)

// Compile-time interface check.
var _ orchestrator.StageExecutor = (*Executor)(nil)

// Executor runs the keyword rules behind simulated latency.
type Executor struct {
	lat    Latencies
	logger *zap.Logger
}

// NewExecutor creates an Executor. A nil logger discards output.
func NewExecutor(lat Latencies, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{lat: lat, logger: logger.Named("mock")}
}

// ResolveIntent waits for the intent latency, then classifies text.
func (e *Executor) ResolveIntent(ctx context.Context, text string) (string, error) {
	if err := e.lat.Intent.Wait(ctx); err != nil {
		return "", fmt.Errorf("mock: resolve intent: %w", err)
	}
	intent, rule, _ := Classify(IntentRules, text)
	e.logger.Debug("intent resolved", zap.String("rule", rule))
	return intent, nil
}

// SynthesizeQuery waits for the query latency, then maps intent to a
// statement. A refused intent surfaces as a *GenerationError.
func (e *Executor) SynthesizeQuery(ctx context.Context, intent string) (string, error) {
	if err := e.lat.Query.Wait(ctx); err != nil {
		return "", fmt.Errorf("mock: synthesize query: %w", err)
	}
	query, rule, err := Classify(QueryRules, intent)
	if err != nil {
		return "", err
	}
	e.logger.Debug("query synthesized", zap.String("rule", rule))
	return query, nil
}

// FetchResults waits for the fetch latency, then returns the dataset for
// query.
func (e *Executor) FetchResults(ctx context.Context, query string) (table.ResultSet, error) {
	if err := e.lat.Fetch.Wait(ctx); err != nil {
		return table.ResultSet{}, fmt.Errorf("mock: fetch results: %w", err)
	}
	rs, rule, _ := Classify(ResultRules, query)
	e.logger.Debug("results fetched", zap.String("rule", rule), zap.Int("rows", rs.Len()))
	return rs, nil
}
