package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dusk-indust/analyst/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// recordingExecutor echoes its inputs and counts calls per stage.
type recordingExecutor struct {
	intentCalls  atomic.Int32
	queryCalls   atomic.Int32
	resultsCalls atomic.Int32

	queryErr error
}

func (e *recordingExecutor) funcs() StageFuncs {
	return StageFuncs{
		Intent: func(_ context.Context, text string) (string, error) {
			e.intentCalls.Add(1)
			return "intent(" + text + ")", nil
		},
		Query: func(_ context.Context, intent string) (string, error) {
			e.queryCalls.Add(1)
			if e.queryErr != nil {
				return "", e.queryErr
			}
			return "query(" + intent + ")", nil
		},
		Results: func(_ context.Context, query string) (table.ResultSet, error) {
			e.resultsCalls.Add(1)
			return table.New([]string{"query"}, []any{query}), nil
		},
	}
}

type memRecorder struct {
	mu   sync.Mutex
	runs []Snapshot
}

func (m *memRecorder) Record(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, s)
}

func (m *memRecorder) all() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Snapshot(nil), m.runs...)
}

func sequentialIDs() func() string {
	var n atomic.Int32
	return func() string { return fmt.Sprintf("run-%d", n.Add(1)) }
}

func newTestPipeline(t *testing.T, exec StageExecutor, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	p := NewPipeline(exec, opts...)
	t.Cleanup(p.Close)
	return p
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// collectUntilTerminal drains ch until a terminal snapshot arrives.
func collectUntilTerminal(t *testing.T, ch <-chan Snapshot) []Snapshot {
	t.Helper()
	var got []Snapshot
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, s)
			if s.State.Phase.IsTerminal() {
				return got
			}
		case <-timeout:
			t.Fatalf("timed out waiting for a terminal snapshot, got %d snapshots", len(got))
			return got
		}
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPipeline_InitialStateIsIdle(t *testing.T) {
	p := newTestPipeline(t, StageFuncs{})

	s := p.State()
	assert.Equal(t, Idle(), s.State)
	assert.False(t, s.State.Flags().Any())
	assert.Nil(t, s.Intent)
	assert.Nil(t, s.SyntheticQuery)
	assert.Nil(t, s.Results)
	assert.Empty(t, s.State.Message)
}

func TestPipeline_Run_ThreadsOutputsThroughStages(t *testing.T) {
	exec := &recordingExecutor{}
	p := newTestPipeline(t, exec.funcs())

	s, err := p.Run(testContext(t), "top products")
	require.NoError(t, err)

	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "top products", s.Query)
	assert.Equal(t, Complete(), s.State)
	assert.False(t, s.State.Flags().Any())

	require.NotNil(t, s.Intent)
	require.NotNil(t, s.SyntheticQuery)
	require.NotNil(t, s.Results)
	assert.Equal(t, "intent(top products)", *s.Intent)
	assert.Equal(t, "query(intent(top products))", *s.SyntheticQuery)
	assert.Equal(t, "query(intent(top products))", s.Results.Rows[0]["query"])
	assert.Empty(t, s.State.Message)
	assert.False(t, s.FinishedAt.Before(s.StartedAt))

	assert.Equal(t, s, p.State())
}

func TestPipeline_Run_FailureAbortsDownstreamStages(t *testing.T) {
	exec := &recordingExecutor{queryErr: errors.New("SQL generation failed: Unsupported intent.")}
	p := newTestPipeline(t, exec.funcs())

	s, err := p.Run(testContext(t), "unsupported query xyz")
	require.NoError(t, err, "a failed run is reported through the snapshot")

	assert.Equal(t, Failed("SQL generation failed: Unsupported intent."), s.State)
	assert.Equal(t, "SQL generation failed: Unsupported intent.", s.State.Message)
	assert.False(t, s.State.Flags().Any(), "all busy flags are cleared on failure")

	require.NotNil(t, s.Intent, "the intent stage completed before the failure")
	assert.Nil(t, s.SyntheticQuery)
	assert.Nil(t, s.Results)

	assert.EqualValues(t, 1, exec.intentCalls.Load())
	assert.EqualValues(t, 1, exec.queryCalls.Load())
	assert.EqualValues(t, 0, exec.resultsCalls.Load(), "the fetch stage must never run after a failure")
}

func TestPipeline_Run_EmptyErrorMessageUsesFallback(t *testing.T) {
	exec := &recordingExecutor{queryErr: errors.New("")}
	p := newTestPipeline(t, exec.funcs())

	s, err := p.Run(testContext(t), "anything")
	require.NoError(t, err)
	assert.Equal(t, FallbackErrorMessage, s.State.Message)
}

func TestPipeline_Submit_BlankTextIgnored(t *testing.T) {
	exec := &recordingExecutor{}
	p := newTestPipeline(t, exec.funcs())

	for _, text := range []string{"", "   ", "\n\t"} {
		id, ok := p.Submit(text)
		assert.False(t, ok, "text %q", text)
		assert.Empty(t, id)
	}
	assert.Equal(t, PhaseIdle, p.State().State.Phase)
	assert.EqualValues(t, 0, exec.intentCalls.Load())

	_, err := p.TrySubmit(" ")
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = p.Run(testContext(t), " ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestPipeline_Submit_IgnoredWhileBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var intentCalls atomic.Int32

	exec := StageFuncs{
		Intent: func(_ context.Context, text string) (string, error) {
			if intentCalls.Add(1) == 1 {
				close(entered)
				<-release
			}
			return "intent", nil
		},
		Query: func(_ context.Context, intent string) (string, error) { return "query", nil },
		Results: func(_ context.Context, query string) (table.ResultSet, error) {
			return table.New([]string{"id"}, []any{1}), nil
		},
	}
	p := newTestPipeline(t, exec)

	firstID, ok := p.Submit("first question")
	require.True(t, ok)
	<-entered

	busy := p.State()
	assert.Equal(t, Running(StageIntent), busy.State)
	assert.Equal(t, BusyFlags{Intent: true}, busy.State.Flags())

	secondID, ok := p.Submit("second question")
	assert.False(t, ok, "submission while busy must be a no-op")
	assert.Empty(t, secondID)

	_, err := p.TrySubmit("second question")
	assert.ErrorIs(t, err, ErrBusy)

	_, err = p.Run(testContext(t), "third question")
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	final, err := p.Wait(testContext(t))
	require.NoError(t, err)

	assert.Equal(t, firstID, final.RunID)
	assert.Equal(t, "first question", final.Query)
	assert.Equal(t, PhaseComplete, final.State.Phase)
	assert.EqualValues(t, 1, intentCalls.Load())

	// Once the run is terminal a new submission is accepted again.
	_, ok = p.Submit("fourth question")
	assert.True(t, ok)
}

func TestPipeline_PublishesEveryTransitionInOrder(t *testing.T) {
	exec := &recordingExecutor{}
	p := newTestPipeline(t, exec.funcs())

	ch, cancel := p.Subscribe()
	defer cancel()

	_, ok := p.Submit("regional sales")
	require.True(t, ok)

	got := collectUntilTerminal(t, ch)
	require.Len(t, got, 4)

	wantStates := []RunState{Running(StageIntent), Running(StageQuery), Running(StageResults), Complete()}
	for i, want := range wantStates {
		assert.Equal(t, want, got[i].State, "snapshot %d", i)
	}

	// Exactly one busy flag while running, none after.
	assert.Equal(t, BusyFlags{Intent: true}, got[0].State.Flags())
	assert.Equal(t, BusyFlags{Query: true}, got[1].State.Flags())
	assert.Equal(t, BusyFlags{Results: true}, got[2].State.Flags())
	assert.Equal(t, BusyFlags{}, got[3].State.Flags())

	// Artifacts appear only once their stage has completed.
	assert.Nil(t, got[0].Intent)
	assert.NotNil(t, got[1].Intent)
	assert.Nil(t, got[1].SyntheticQuery)
	assert.NotNil(t, got[2].SyntheticQuery)
	assert.Nil(t, got[2].Results)
	assert.NotNil(t, got[3].Results)
}

func TestPipeline_NewRunResetsArtifactsAndError(t *testing.T) {
	exec := &recordingExecutor{queryErr: errors.New("boom")}
	p := newTestPipeline(t, exec.funcs())

	failed, err := p.Run(testContext(t), "first")
	require.NoError(t, err)
	require.Equal(t, PhaseFailed, failed.State.Phase)

	exec.queryErr = nil
	ch, cancel := p.Subscribe()
	defer cancel()

	_, ok := p.Submit("second")
	require.True(t, ok)

	got := collectUntilTerminal(t, ch)
	require.NotEmpty(t, got)

	first := got[0]
	assert.Equal(t, "run-2", first.RunID)
	assert.Equal(t, "second", first.Query)
	assert.Nil(t, first.Intent, "intent of the previous run must be cleared")
	assert.Nil(t, first.SyntheticQuery)
	assert.Nil(t, first.Results)
	assert.Empty(t, first.State.Message, "error of the previous run must be cleared")

	assert.Equal(t, PhaseComplete, got[len(got)-1].State.Phase)
}

func TestPipeline_RecordsFinishedRuns(t *testing.T) {
	exec := &recordingExecutor{}
	rec := &memRecorder{}
	p := newTestPipeline(t, exec.funcs(), WithRecorder(rec))

	good, err := p.Run(testContext(t), "customers")
	require.NoError(t, err)

	exec.queryErr = errors.New("nope")
	bad, err := p.Run(testContext(t), "customers again")
	require.NoError(t, err)

	runs := rec.all()
	require.Len(t, runs, 2)
	assert.Equal(t, good.RunID, runs[0].RunID)
	assert.Equal(t, PhaseComplete, runs[0].State.Phase)
	assert.Equal(t, bad.RunID, runs[1].RunID)
	assert.Equal(t, PhaseFailed, runs[1].State.Phase)
}

func TestPipeline_UsesClock(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ticks atomic.Int32
	clock := func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}

	exec := &recordingExecutor{}
	p := newTestPipeline(t, exec.funcs(), WithClock(clock))

	s, err := p.Run(testContext(t), "inventory")
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Second), s.StartedAt)
	assert.Greater(t, s.Duration(), time.Duration(0))
}

func TestPipeline_Close_FailsRunInProgress(t *testing.T) {
	entered := make(chan struct{})
	exec := StageFuncs{
		Intent: func(ctx context.Context, text string) (string, error) {
			close(entered)
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	p := NewPipeline(exec)

	_, ok := p.Submit("revenue")
	require.True(t, ok)
	<-entered

	p.Close()

	s := p.State()
	assert.Equal(t, PhaseFailed, s.State.Phase)
	assert.Equal(t, context.Canceled.Error(), s.State.Message)

	_, ok = p.Submit("after close")
	assert.False(t, ok)

	_, err := p.TrySubmit("after close")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = p.Run(context.Background(), "after close")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPipeline_Run_ReturnsWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	exec := StageFuncs{
		Intent: func(_ context.Context, text string) (string, error) {
			<-release
			return "intent", nil
		},
		Query: func(_ context.Context, intent string) (string, error) { return "", errors.New("stop") },
	}
	p := newTestPipeline(t, exec)
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s, err := p.Run(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Running(StageIntent), s.State)
}

func TestStageFuncs_NilStageFails(t *testing.T) {
	p := newTestPipeline(t, StageFuncs{})

	s, err := p.Run(testContext(t), "anything")
	require.NoError(t, err)
	assert.Equal(t, PhaseFailed, s.State.Phase)
	assert.Contains(t, s.State.Message, "no executor for stage intent")
}
