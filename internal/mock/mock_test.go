package mock

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dusk-indust/analyst/internal/orchestrator"
	"github.com/dusk-indust/analyst/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- Intent ----

func TestResolveIntent_Categories(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Show me revenue growth in Q1 2023", "User wants to analyze revenue data for Q1 2023."},
		{"REVENUE please", "User wants to analyze revenue data for a specified period."},
		{"revenue in ", "User wants to analyze revenue data for a specified period."},
		{"Top selling items", "User is requesting information about products or best-selling items."},
		{"list products", "User is requesting information about products or best-selling items."},
		{"Our best Customers", "User is asking for customer data."},
		{"regional breakdown", "User wants to view data segmented by region."},
		{"low Stock alerts", "User is querying for inventory and stock levels."},
		{"inventory", "User is querying for inventory and stock levels."},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveIntent(tt.text))
		})
	}
}

func TestResolveIntent_FirstMatchWins(t *testing.T) {
	assert.Contains(t, ResolveIntent("revenue by region"), "revenue")
	assert.Equal(t, "User is requesting information about products or best-selling items.",
		ResolveIntent("products per customer"))
}

func TestResolveIntent_FallbackKeepsTextVerbatim(t *testing.T) {
	text := `weather "forecast" über alles`
	got := ResolveIntent(text)
	assert.Equal(t, `User's intent is to find data related to: "weather "forecast" über alles".`, got)
	assert.Contains(t, got, text)
}

// ---- Query ----

func TestSynthesizeQuery_Categories(t *testing.T) {
	tests := []struct {
		intent string
		want   string
	}{
		{"User wants to analyze revenue data for Q1 2023.", RevenueQuery},
		{"User is requesting information about products or best-selling items.", ProductQuery},
		{"User is asking for customer data.", CustomerQuery},
		{"User wants to view data segmented by region.", RegionQuery},
		{"User is querying for inventory and stock levels.", InventoryQuery},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := SynthesizeQuery(tt.intent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSynthesizeQuery_Fallback(t *testing.T) {
	got, err := SynthesizeQuery("something else")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM generic_data_for_intent = 'something else';", got)
}

func TestSynthesizeQuery_RejectsUnsupported(t *testing.T) {
	for _, intent := range []string{"unsupported", "An UNSUPPORTED revenue request", "Unsupported"} {
		got, err := SynthesizeQuery(intent)
		require.Error(t, err, intent)
		assert.Empty(t, got)

		var genErr *GenerationError
		require.True(t, errors.As(err, &genErr))
		assert.Equal(t, "SQL generation failed: Unsupported intent.", genErr.Error())
		assert.Equal(t, intent, genErr.Intent)
	}
}

// ---- Results ----

func TestFetchResults_Revenue(t *testing.T) {
	rs := FetchResults(RevenueQuery)
	require.Equal(t, 5, rs.Len())
	assert.Equal(t, []string{"quarter", "revenue", "yoy_growth"}, rs.ColumnNames())
	assert.Equal(t, table.Row{"quarter": "Q1 2023", "revenue": 150000, "yoy_growth": "5%"}, rs.Rows[0])
	for _, row := range rs.Rows {
		assert.Len(t, row, 3)
	}
}

func TestFetchResults_EveryCategoryRoundTrips(t *testing.T) {
	tests := []struct {
		text string
		want table.ResultSet
	}{
		{"revenue in 2024", RevenueResults},
		{"best products", ProductResults},
		{"customers", CustomerResults},
		{"sales by region", RegionResults},
		{"stock levels", InventoryResults},
		{"anything else", GenericResults},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			query, err := SynthesizeQuery(ResolveIntent(tt.text))
			require.NoError(t, err)
			assert.Equal(t, tt.want, FetchResults(query))
		})
	}
}

func TestFetchResults_ReturnsCopies(t *testing.T) {
	rs := FetchResults(CustomerQuery)
	rs.Rows[0]["name"] = "Mallory"
	rs.Columns[0] = "x"

	again := FetchResults(CustomerQuery)
	assert.Equal(t, "Alice", again.Rows[0]["name"])
	assert.Equal(t, "customer_id", again.Columns[0])
}

func TestClassify_NoRule(t *testing.T) {
	_, _, err := Classify([]Rule[string]{{Name: "x", Match: ContainsAny("x"), Apply: constant("x")}}, "y")
	assert.ErrorIs(t, err, ErrNoRule)
}

// ---- Latency ----

func TestLatency_DrawWithinBounds(t *testing.T) {
	l := Latency{Min: 10 * time.Millisecond, Jitter: 5 * time.Millisecond}
	for range 200 {
		d := l.Draw()
		assert.GreaterOrEqual(t, d, l.Min)
		assert.Less(t, d, l.Max())
	}
	assert.Equal(t, time.Duration(0), Latency{}.Draw())
}

func TestDefaultLatencies(t *testing.T) {
	lat := DefaultLatencies()
	assert.Equal(t, 1500*time.Millisecond, lat.Intent.Min)
	assert.Equal(t, 2000*time.Millisecond, lat.Query.Min)
	assert.Equal(t, 2700*time.Millisecond, lat.Query.Max())
	assert.Equal(t, 3300*time.Millisecond, lat.Fetch.Max())
}

func TestLatency_WaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Latency{Min: time.Hour}.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

// ---- Executor ----

func TestExecutor_Pipeline(t *testing.T) {
	exec := NewExecutor(NoLatency(), nil)
	ctx := context.Background()

	intent, err := exec.ResolveIntent(ctx, "Show me revenue growth in Q1 2023")
	require.NoError(t, err)
	assert.True(t, strings.Contains(intent, "Q1 2023"))

	query, err := exec.SynthesizeQuery(ctx, intent)
	require.NoError(t, err)
	assert.Equal(t, RevenueQuery, query)

	rs, err := exec.FetchResults(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 5, rs.Len())
}

func TestExecutor_UnsupportedThroughPipeline(t *testing.T) {
	p := orchestrator.NewPipeline(NewExecutor(NoLatency(), nil))
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := p.Run(ctx, "unsupported query xyz")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.PhaseFailed, snap.State.Phase)
	assert.Equal(t, "SQL generation failed: Unsupported intent.", snap.State.Message)
	require.NotNil(t, snap.Intent)
	assert.Contains(t, *snap.Intent, "unsupported query xyz")
	assert.Nil(t, snap.SyntheticQuery)
	assert.Nil(t, snap.Results)
}

func TestExecutor_CancelledWait(t *testing.T) {
	exec := NewExecutor(Latencies{Query: Latency{Min: time.Hour}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.SynthesizeQuery(ctx, "revenue")
	assert.ErrorIs(t, err, context.Canceled)
}
