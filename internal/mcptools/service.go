package mcptools

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/analyst/internal/export"
	"github.com/dusk-indust/analyst/internal/history"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RunSource looks up finished runs.
type RunSource interface {
	Get(id string) (orchestrator.Snapshot, error)
	List(req history.ListRequest) (history.ListResponse, error)
}

// ErrNoHistory is returned by the history tools when no RunSource is wired.
var ErrNoHistory = errors.New("mcptools: run history is disabled")

// AnalystService handles MCP tool calls. It wraps an Orchestrator to run
// questions and a RunSource to look up finished runs.
type AnalystService struct {
	pipeline orchestrator.Orchestrator
	runs     RunSource
}

// NewAnalystService creates an AnalystService. runs may be nil.
func NewAnalystService(pipeline orchestrator.Orchestrator, runs RunSource) *AnalystService {
	return &AnalystService{pipeline: pipeline, runs: runs}
}

// SubmitQuery runs a question through the pipeline and waits for the
// terminal state. A blank question or a busy pipeline is reported as not
// accepted rather than as an error.
func (s *AnalystService) SubmitQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SubmitQueryInput,
) (*mcp.CallToolResult, SubmitQueryOutput, error) {
	snap, err := s.pipeline.Run(ctx, input.Text)
	switch {
	case errors.Is(err, orchestrator.ErrEmptyQuery):
		return nil, SubmitQueryOutput{Reason: "query text is empty"}, nil
	case errors.Is(err, orchestrator.ErrBusy):
		return nil, SubmitQueryOutput{Reason: "a run is already in progress"}, nil
	case err != nil:
		return nil, SubmitQueryOutput{}, fmt.Errorf("submit query: %w", err)
	}

	view := NewRunView(snap)
	return nil, SubmitQueryOutput{Accepted: true, Run: &view}, nil
}

// GetState reports the pipeline's current state.
func (s *AnalystService) GetState(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ GetStateInput,
) (*mcp.CallToolResult, RunView, error) {
	return nil, NewRunView(s.pipeline.State()), nil
}

// GetRun returns one finished run.
func (s *AnalystService) GetRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetRunInput,
) (*mcp.CallToolResult, RunView, error) {
	snap, err := s.lookup(input.RunID)
	if err != nil {
		return nil, RunView{}, err
	}
	return nil, NewRunView(snap), nil
}

// ListRuns pages through the run history.
func (s *AnalystService) ListRuns(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListRunsInput,
) (*mcp.CallToolResult, ListRunsOutput, error) {
	if s.runs == nil {
		return nil, ListRunsOutput{}, ErrNoHistory
	}

	req := history.ListRequest{PageSize: input.PageSize, PageToken: input.PageToken}
	if input.Phase != "" {
		phase := orchestrator.Phase(input.Phase)
		if !phase.IsTerminal() {
			return nil, ListRunsOutput{}, fmt.Errorf("invalid phase %q: want complete or failed", input.Phase)
		}
		req.Phase = phase
	}

	resp, err := s.runs.List(req)
	if err != nil {
		return nil, ListRunsOutput{}, fmt.Errorf("list runs: %w", err)
	}

	out := ListRunsOutput{TotalSize: resp.TotalSize, NextPageToken: resp.NextPageToken}
	for _, snap := range resp.Runs {
		out.Runs = append(out.Runs, NewRunView(snap))
	}
	return nil, out, nil
}

// ExportResults renders the results of a completed run as text.
func (s *AnalystService) ExportResults(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ExportResultsInput,
) (*mcp.CallToolResult, ExportResultsOutput, error) {
	name := input.Format
	if name == "" {
		name = string(export.FormatMarkdown)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return nil, ExportResultsOutput{}, err
	}
	if format == export.FormatXLSX {
		return nil, ExportResultsOutput{}, fmt.Errorf("format %q is binary; use the console download instead", format)
	}

	snap, err := s.lookup(input.RunID)
	if err != nil {
		return nil, ExportResultsOutput{}, err
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, snap); err != nil {
		return nil, ExportResultsOutput{}, err
	}
	return nil, ExportResultsOutput{
		RunID:   snap.RunID,
		Format:  string(format),
		Content: buf.String(),
	}, nil
}

// lookup finds a run in the history, falling back to the pipeline's
// current run.
func (s *AnalystService) lookup(id string) (orchestrator.Snapshot, error) {
	if id == "" {
		return orchestrator.Snapshot{}, errors.New("runId is required")
	}
	if s.runs != nil {
		snap, err := s.runs.Get(id)
		if err == nil || !errors.Is(err, history.ErrRunNotFound) {
			return snap, err
		}
	}
	if cur := s.pipeline.State(); cur.RunID == id {
		return cur, nil
	}
	return orchestrator.Snapshot{}, fmt.Errorf("%w: %q", history.ErrRunNotFound, id)
}
