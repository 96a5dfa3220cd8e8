package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dusk-indust/analyst/internal/table"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Compile-time interface check.
var _ Orchestrator = (*Pipeline)(nil)

// Recorder receives every run once it reaches Complete or Failed.
type Recorder interface {
	Record(Snapshot)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRecorder registers a sink for finished runs.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator overrides the run ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(p *Pipeline) { p.newID = gen }
}

// run tracks one submission until it finishes.
type run struct {
	id    string
	done  chan struct{}
	final Snapshot
}

// Pipeline is the single-run state machine
// Idle → intent → query → results → Complete, with Failed reachable from
// every running stage. Only the goroutine executing the current run mutates
// the snapshot; everybody else reads clones.
type Pipeline struct {
	exec     StageExecutor
	logger   *zap.Logger
	recorder Recorder
	progress *Broadcaster
	now      func() time.Time
	newID    func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	snap    Snapshot
	current *run
	closed  bool
}

// NewPipeline creates an idle Pipeline that runs stages on exec.
func NewPipeline(exec StageExecutor, opts ...Option) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		exec:     exec,
		logger:   zap.NewNop(),
		progress: NewBroadcaster(),
		now:      time.Now,
		newID:    uuid.NewString,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.snap.State = Idle()
	return p
}

// ---------------------------------------------------------------------------
// Orchestrator interface
// ---------------------------------------------------------------------------

// Submit starts a run unless text is blank or a run is in progress, in which
// case it does nothing and returns false.
func (p *Pipeline) Submit(text string) (string, bool) {
	id, err := p.TrySubmit(text)
	return id, err == nil
}

// TrySubmit starts a run like Submit. An ignored submission returns
// ErrEmptyQuery, ErrBusy or ErrClosed and leaves the state untouched.
func (p *Pipeline) TrySubmit(text string) (string, error) {
	r, err := p.start(text)
	if err != nil {
		p.logger.Debug("submit ignored", zap.Error(err))
		return "", err
	}
	return r.id, nil
}

// Run submits text and waits for the run to finish. A failed run is reported
// through the snapshot's state, not the error; the error is only set when
// the submission was ignored or ctx ended first.
func (p *Pipeline) Run(ctx context.Context, text string) (Snapshot, error) {
	r, err := p.start(text)
	if err != nil {
		return p.State(), err
	}
	select {
	case <-r.done:
		return r.final.Clone(), nil
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}

// Wait blocks until the run in progress, if any, has finished and returns
// the resulting state.
func (p *Pipeline) Wait(ctx context.Context) (Snapshot, error) {
	p.mu.Lock()
	r := p.current
	p.mu.Unlock()

	if r == nil {
		return p.State(), nil
	}
	select {
	case <-r.done:
		return r.final.Clone(), nil
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}

// State returns the current snapshot.
func (p *Pipeline) State() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Clone()
}

// Subscribe returns a feed of snapshots published after every transition.
func (p *Pipeline) Subscribe() (<-chan Snapshot, func()) {
	return p.progress.Subscribe()
}

// Close fails any run in progress, waits for it to finish and closes all
// subscriptions.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.progress.Close()
}

// ---------------------------------------------------------------------------
// State machine
// ---------------------------------------------------------------------------

// start performs the Idle/Complete/Failed → intent transition: every
// artifact and the error are cleared before the first stage begins.
func (p *Pipeline) start(text string) (*run, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.snap.State.Active() {
		return nil, ErrBusy
	}

	r := &run{id: p.newID(), done: make(chan struct{})}
	p.current = r
	p.snap = Snapshot{
		RunID:     r.id,
		Query:     text,
		StartedAt: p.now(),
	}
	p.snap.State = Running(StageIntent)
	p.progress.Publish(p.snap)

	p.logger.Info("run started",
		zap.String("run_id", r.id),
		zap.String("query", text),
	)

	p.wg.Add(1)
	go p.execute(r, text)
	return r, nil
}

// execute awaits each stage in order, feeding its output to the next.
func (p *Pipeline) execute(r *run, text string) {
	defer p.wg.Done()
	defer close(r.done)

	intent, ok := runStage(p, r, StageIntent, func(ctx context.Context) (string, error) {
		return p.exec.ResolveIntent(ctx, text)
	})
	if !ok {
		return
	}
	p.advance(StageQuery, func(s *Snapshot) { s.Intent = &intent })

	query, ok := runStage(p, r, StageQuery, func(ctx context.Context) (string, error) {
		return p.exec.SynthesizeQuery(ctx, intent)
	})
	if !ok {
		return
	}
	p.advance(StageResults, func(s *Snapshot) { s.SyntheticQuery = &query })

	rows, ok := runStage(p, r, StageResults, func(ctx context.Context) (table.ResultSet, error) {
		return p.exec.FetchResults(ctx, query)
	})
	if !ok {
		return
	}
	p.finish(r, Complete(), func(s *Snapshot) { s.Results = &rows })
}

// runStage invokes one stage and moves the run to Failed when it errors.
func runStage[T any](p *Pipeline, r *run, stage Stage, fn func(context.Context) (T, error)) (T, bool) {
	started := p.now()
	out, err := fn(p.ctx)
	if err != nil {
		p.logger.Warn("stage failed",
			zap.String("run_id", r.id),
			zap.Stringer("stage", stage),
			zap.Duration("duration", p.now().Sub(started)),
			zap.Error(err),
		)
		p.finish(r, Failed(errorMessage(err)), nil)
		return out, false
	}

	p.logger.Debug("stage complete",
		zap.String("run_id", r.id),
		zap.Stringer("stage", stage),
		zap.Duration("duration", p.now().Sub(started)),
	)
	return out, true
}

// advance stores the artifact of the stage that just finished and marks
// next as the busy stage.
func (p *Pipeline) advance(next Stage, apply func(*Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	apply(&p.snap)
	p.snap.State = Running(next)
	p.progress.Publish(p.snap)
}

// finish moves the run to a terminal state, records it and releases Run
// and Wait callers.
func (p *Pipeline) finish(r *run, st RunState, apply func(*Snapshot)) {
	p.mu.Lock()
	if apply != nil {
		apply(&p.snap)
	}
	p.snap.State = st
	p.snap.FinishedAt = p.now()
	p.progress.Publish(p.snap)
	r.final = p.snap.Clone()
	p.current = nil
	final := r.final
	p.mu.Unlock()

	p.logger.Info("run finished",
		zap.String("run_id", r.id),
		zap.String("phase", string(st.Phase)),
		zap.Duration("duration", final.Duration()),
		zap.String("error", st.Message),
	)

	if p.recorder != nil {
		p.recorder.Record(final)
	}
}

// errorMessage is the user-visible text for a stage failure.
func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return FallbackErrorMessage
}
