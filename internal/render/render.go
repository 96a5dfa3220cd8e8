// Package render draws pipeline progress and result tables in the terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/dusk-indust/analyst/internal/table"
	"github.com/pterm/pterm"
)

// Presentation strings shared with the console page.
const (
	NoDataText    = "No data to display yet."
	NoResultsText = "No results found for your query."
)

// Renderer turns a stream of snapshots into terminal output. Interactive
// renderers animate one spinner per stage on stdout; plain renderers write
// one line per transition to their writer.
type Renderer struct {
	w           io.Writer
	interactive bool

	runID   string
	stage   orchestrator.Stage
	done    bool
	spinner *pterm.SpinnerPrinter
}

// New creates a Renderer. When interactive is false all output goes to w.
func New(w io.Writer, interactive bool) *Renderer {
	return &Renderer{w: w, interactive: interactive}
}

// Update renders the transition from the previous snapshot to s. Snapshots
// of one run must arrive in order; a new run ID starts a fresh block.
func (r *Renderer) Update(s orchestrator.Snapshot) {
	if s.RunID != r.runID {
		r.stop()
		r.runID, r.stage, r.done = s.RunID, orchestrator.StageNone, false
		if s.RunID != "" && s.Query != "" {
			r.println(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint("→ Question: ") + s.Query)
		}
	}
	if r.done {
		return
	}

	switch s.State.Phase {
	case orchestrator.PhaseRunning:
		if s.State.Stage != r.stage {
			r.succeed(s)
			r.begin(s.State.Stage)
		}
	case orchestrator.PhaseComplete:
		r.succeed(s)
		r.done = true
		r.println(Table(s.Results))
	case orchestrator.PhaseFailed:
		r.fail(s.State.Message)
		r.done = true
	}
}

// Close stops any running spinner.
func (r *Renderer) Close() {
	r.stop()
}

func (r *Renderer) begin(stage orchestrator.Stage) {
	r.stage = stage
	text := stage.Title() + "..."
	if r.interactive {
		sp, err := pterm.DefaultSpinner.Start(text)
		if err == nil {
			r.spinner = sp
			return
		}
	}
	r.println(pterm.NewStyle(pterm.FgCyan).Sprint("● ") + text)
}

// succeed closes the current stage with its output taken from s.
func (r *Renderer) succeed(s orchestrator.Snapshot) {
	if r.stage == orchestrator.StageNone {
		return
	}
	msg := r.stage.Title() + ": " + stageOutput(r.stage, s)
	if r.spinner != nil {
		r.spinner.Success(msg)
		r.spinner = nil
	} else {
		r.println(pterm.Success.Sprint(msg))
	}
	r.stage = orchestrator.StageNone
}

func (r *Renderer) fail(message string) {
	if message == "" {
		message = orchestrator.FallbackErrorMessage
	}
	if r.spinner != nil {
		r.spinner.Fail(message)
		r.spinner = nil
	} else {
		r.println(pterm.Error.Sprint(message))
	}
	r.stage = orchestrator.StageNone
}

func (r *Renderer) stop() {
	if r.spinner != nil {
		_ = r.spinner.Stop()
		r.spinner = nil
	}
}

func (r *Renderer) println(s string) {
	if r.interactive {
		pterm.Println(s)
		return
	}
	fmt.Fprintln(r.w, strings.TrimRight(s, "\n"))
}

// stageOutput is the artifact a finished stage produced.
func stageOutput(stage orchestrator.Stage, s orchestrator.Snapshot) string {
	switch stage {
	case orchestrator.StageIntent:
		if s.Intent != nil {
			return *s.Intent
		}
	case orchestrator.StageQuery:
		if s.SyntheticQuery != nil {
			return *s.SyntheticQuery
		}
	case orchestrator.StageResults:
		if s.Results != nil {
			return fmt.Sprintf("%d rows", s.Results.Len())
		}
	}
	return ""
}

// Table renders a result set as a boxed table with display header labels.
// A nil set renders the no-data text; an empty one the no-results text.
func Table(rs *table.ResultSet) string {
	if rs == nil {
		return NoDataText
	}
	if rs.Len() == 0 {
		return NoResultsText
	}
	data := pterm.TableData{rs.Headers()}
	data = append(data, rs.Records()...)

	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return rs.String()
	}
	return out
}

// Summary renders a one-block description of s for status output.
func Summary(s orchestrator.Snapshot) string {
	var b strings.Builder
	b.WriteString(orchestrator.FormatProgress(s))
	if s.RunID != "" {
		fmt.Fprintf(&b, "\n  run:    %s", s.RunID)
	}
	if s.Query != "" {
		fmt.Fprintf(&b, "\n  query:  %s", s.Query)
	}
	if s.Intent != nil {
		fmt.Fprintf(&b, "\n  intent: %s", *s.Intent)
	}
	if s.SyntheticQuery != nil {
		fmt.Fprintf(&b, "\n  sql:    %s", *s.SyntheticQuery)
	}
	return b.String()
}
