package mcptools

import (
	"time"

	"github.com/dusk-indust/analyst/internal/orchestrator"
)

// --- MCP Tool Types ---
// The MCP Go SDK derives each tool's JSON schema from these structs. Output
// types are kept to plain strings, numbers and slices so the derived schema
// matches the encoded value.

// SubmitQueryInput is the input for the submit_query MCP tool.
type SubmitQueryInput struct {
	Text string `json:"text" jsonschema:"the natural-language question to analyze"`
}

// SubmitQueryOutput is the result of the submit_query MCP tool.
type SubmitQueryOutput struct {
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason,omitempty"`
	Run      *RunView `json:"run,omitempty"`
}

// GetStateInput is the input for the get_state MCP tool.
type GetStateInput struct{}

// GetRunInput is the input for the get_run MCP tool.
type GetRunInput struct {
	RunID string `json:"runId" jsonschema:"ID of a finished run"`
}

// ListRunsInput is the input for the list_runs MCP tool.
type ListRunsInput struct {
	Phase     string `json:"phase,omitempty" jsonschema:"only runs in this phase: complete or failed"`
	PageSize  int    `json:"pageSize,omitempty" jsonschema:"maximum number of runs to return (default: all)"`
	PageToken string `json:"pageToken,omitempty" jsonschema:"nextPageToken from a previous call"`
}

// ListRunsOutput is the result of the list_runs MCP tool.
type ListRunsOutput struct {
	Runs          []RunView `json:"runs,omitempty"`
	TotalSize     int       `json:"totalSize"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// ExportResultsInput is the input for the export_results MCP tool.
type ExportResultsInput struct {
	RunID  string `json:"runId" jsonschema:"ID of a completed run"`
	Format string `json:"format,omitempty" jsonschema:"csv, markdown or json (default: markdown)"`
}

// ExportResultsOutput is the result of the export_results MCP tool.
type ExportResultsOutput struct {
	RunID   string `json:"runId"`
	Format  string `json:"format"`
	Content string `json:"content"`
}

// BusyView mirrors the per-stage busy flags.
type BusyView struct {
	Intent  bool `json:"intent"`
	Query   bool `json:"query"`
	Results bool `json:"results"`
}

// RunView is the tool-facing rendering of a snapshot. Result cells are
// formatted as strings in column order.
type RunView struct {
	RunID          string     `json:"runId,omitempty"`
	Query          string     `json:"query,omitempty"`
	Phase          string     `json:"phase"`
	Stage          string     `json:"stage,omitempty"`
	Busy           BusyView   `json:"busy"`
	Intent         string     `json:"intent,omitempty"`
	SyntheticQuery string     `json:"syntheticQuery,omitempty"`
	Columns        []string   `json:"columns,omitempty"`
	Rows           [][]string `json:"rows,omitempty"`
	RowCount       int        `json:"rowCount"`
	Error          string     `json:"error,omitempty"`
	StartedAt      string     `json:"startedAt,omitempty"`
	FinishedAt     string     `json:"finishedAt,omitempty"`
}

// NewRunView converts a snapshot.
func NewRunView(s orchestrator.Snapshot) RunView {
	busy := s.State.Flags()
	v := RunView{
		RunID: s.RunID,
		Query: s.Query,
		Phase: string(s.State.Phase),
		Busy: BusyView{
			Intent:  busy.Intent,
			Query:   busy.Query,
			Results: busy.Results,
		},
		Error:      s.State.Message,
		StartedAt:  formatTime(s.StartedAt),
		FinishedAt: formatTime(s.FinishedAt),
	}
	if s.State.Stage != orchestrator.StageNone {
		v.Stage = s.State.Stage.String()
	}
	if s.Intent != nil {
		v.Intent = *s.Intent
	}
	if s.SyntheticQuery != nil {
		v.SyntheticQuery = *s.SyntheticQuery
	}
	if s.Results != nil {
		v.Columns = s.Results.ColumnNames()
		v.Rows = s.Results.Records()
		v.RowCount = s.Results.Len()
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
