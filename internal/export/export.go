// Package export renders the result set of a finished run as JSON, CSV,
// Markdown or XLSX.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/dusk-indust/analyst/internal/table"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatXLSX}

// ErrNoResults is returned when the run produced no result set.
var ErrNoResults = errors.New("export: run has no results")

// ParseFormat resolves a format name. The empty string selects JSON and "md"
// is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("export: unknown format %q", s)
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// Filename returns the suggested download name for a run.
func Filename(runID string, f Format) string {
	if runID == "" {
		runID = "results"
	}
	return fmt.Sprintf("%s.%s", runID, f.Extension())
}

// RunExport is the JSON export envelope.
type RunExport struct {
	RunID          string      `json:"runId,omitempty"`
	Query          string      `json:"query"`
	Intent         string      `json:"intent,omitempty"`
	SyntheticQuery string      `json:"syntheticQuery,omitempty"`
	ExportedAt     string      `json:"exportedAt"`
	Columns        []string    `json:"columns"`
	Rows           []table.Row `json:"rows"`
}

// NewRunExport builds the envelope for snap.
func NewRunExport(snap orchestrator.Snapshot) (*RunExport, error) {
	if snap.Results == nil {
		return nil, ErrNoResults
	}
	rs := snap.Results.Clone()
	out := &RunExport{
		RunID:      snap.RunID,
		Query:      snap.Query,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Columns:    rs.ColumnNames(),
		Rows:       rs.Rows,
	}
	if out.Rows == nil {
		out.Rows = []table.Row{}
	}
	if snap.Intent != nil {
		out.Intent = *snap.Intent
	}
	if snap.SyntheticQuery != nil {
		out.SyntheticQuery = *snap.SyntheticQuery
	}
	return out, nil
}

// Write encodes the results of snap to w.
func Write(w io.Writer, f Format, snap orchestrator.Snapshot) error {
	if snap.Results == nil {
		return ErrNoResults
	}
	var err error
	switch f {
	case FormatJSON:
		err = writeJSON(w, snap)
	case FormatCSV:
		err = WriteCSV(w, *snap.Results)
	case FormatMarkdown:
		err = WriteMarkdown(w, *snap.Results)
	case FormatXLSX:
		err = WriteXLSX(w, *snap.Results)
	default:
		return fmt.Errorf("export: unknown format %q", f)
	}
	if err != nil {
		return fmt.Errorf("export: write %s: %w", f, err)
	}
	return nil
}

func writeJSON(w io.Writer, snap orchestrator.Snapshot) error {
	out, err := NewRunExport(snap)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
