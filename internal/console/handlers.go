package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dusk-indust/analyst/internal/export"
	"github.com/dusk-indust/analyst/internal/history"
	"github.com/dusk-indust/analyst/internal/orchestrator"
	"go.uber.org/zap"
)

// maxQueryBytes bounds the body of POST /api/query.
const maxQueryBytes = 64 << 10

// Reasons reported when a submission is ignored.
const (
	ReasonEmpty  = "query text is empty"
	ReasonBusy   = "a run is already in progress"
	ReasonClosed = "the pipeline is shutting down"
)

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Text string `json:"text"`
}

// QueryResponse reports whether a submission started a run.
type QueryResponse struct {
	Accepted bool   `json:"accepted"`
	RunID    string `json:"runId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	id, err := s.pipe.TrySubmit(req.Text)
	if err == nil {
		writeJSON(w, http.StatusAccepted, QueryResponse{Accepted: true, RunID: id})
		return
	}
	writeJSON(w, http.StatusOK, QueryResponse{Accepted: false, Reason: ignoredReason(err)})
}

// ignoredReason describes why the pipeline refused a submission.
func ignoredReason(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrEmptyQuery):
		return ReasonEmpty
	case errors.Is(err, orchestrator.ErrClosed):
		return ReasonClosed
	default:
		return ReasonBusy
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipe.State())
}

// handleEvents streams one frame per state transition, starting with the
// current state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	feed, cancel := s.pipe.Subscribe()
	defer cancel()

	sw := NewSSEWriter(w)
	sw.Init()
	if err := sw.WriteSnapshot(s.pipe.State()); err != nil {
		return
	}

	var tick <-chan time.Time
	if s.keepAlive > 0 {
		t := time.NewTicker(s.keepAlive)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case snap, ok := <-feed:
			if !ok {
				return
			}
			if err := sw.WriteSnapshot(snap); err != nil {
				s.logger.Debug("event stream closed", zap.Error(err))
				return
			}
		case <-tick:
			if err := sw.WriteComment("keep-alive"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}

	q := r.URL.Query()
	req := history.ListRequest{PageToken: q.Get("pageToken")}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid pageSize %q", v))
			return
		}
		req.PageSize = n
	}
	if v := q.Get("phase"); v != "" {
		phase := orchestrator.Phase(v)
		if !phase.IsTerminal() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid phase %q: want complete or failed", v))
			return
		}
		req.Phase = phase
	}

	resp, err := s.runs.List(req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	snap, err := s.lookupRun(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.lookupRun(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, snap); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(snap.RunID, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// lookupRun finds a run in the history, falling back to the pipeline's
// current run.
func (s *Server) lookupRun(id string) (orchestrator.Snapshot, error) {
	if s.runs != nil {
		snap, err := s.runs.Get(id)
		if err == nil || !errors.Is(err, history.ErrRunNotFound) {
			return snap, err
		}
	}
	if cur := s.pipe.State(); cur.RunID != "" && cur.RunID == id {
		return cur, nil
	}
	return orchestrator.Snapshot{}, fmt.Errorf("%w: %q", history.ErrRunNotFound, id)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, history.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, history.ErrInvalidPageToken):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrNoResults):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
