package bubbletea_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/scry"
	bt "github.com/fwojciec/scry/bubbletea"
)

func testStyles() bt.Styles {
	return bt.NewStyles(scry.DefaultTheme())
}

func toggle(t *testing.T, b bt.MessageBlock) bt.MessageBlock {
	t.Helper()
	updated, _ := b.Update(bt.ToggleMsg{})
	require.NotNil(t, updated)
	return updated
}

func TestQuestionBlock(t *testing.T) {
	t.Parallel()

	b := bt.NewQuestionBlock("What is the TVL of Aave?", testStyles())
	view := b.View(80)
	assert.Contains(t, view, "> ")
	assert.Contains(t, view, "What is the TVL of Aave?")
}

func TestLoadingBlock(t *testing.T) {
	t.Parallel()

	t.Run("message preferred over stage", func(t *testing.T) {
		t.Parallel()
		b := bt.NewLoadingBlock(testStyles())
		b.SetProgress("analysis", "Analyzing protocol data")
		assert.Contains(t, b.View(80), "Analyzing protocol data")
	})

	t.Run("falls back to stage then generic label", func(t *testing.T) {
		t.Parallel()
		b := bt.NewLoadingBlock(testStyles())
		b.SetProgress("analysis", "")
		assert.Contains(t, b.View(80), "analysis")

		b.SetProgress("", "")
		assert.Contains(t, b.View(80), "working")
	})
}

func TestResearchBlock(t *testing.T) {
	t.Parallel()

	state := scry.ResearchItem{
		Iteration:         2,
		TotalIterations:   5,
		Phase:             "exploring",
		DimensionsCovered: []string{"tvl"},
		DimensionsPending: []string{"fees", "volume"},
		Discoveries:       []string{"found fee spike on Arbitrum"},
		ToolsExecuted:     7,
	}

	t.Run("collapsed shows progress header only", func(t *testing.T) {
		t.Parallel()
		b := bt.NewResearchBlock(testStyles())
		b.SetState(state)
		view := b.View(80)
		assert.Contains(t, view, "Research 2/5")
		assert.Contains(t, view, "exploring")
		assert.NotContains(t, view, "fee spike")
	})

	t.Run("toggle reveals telemetry detail", func(t *testing.T) {
		t.Parallel()
		b := bt.NewResearchBlock(testStyles())
		b.SetState(state)
		expanded := toggle(t, b)
		view := expanded.View(80)
		assert.Contains(t, view, "covered: tvl")
		assert.Contains(t, view, "pending: fees, volume")
		assert.Contains(t, view, "found fee spike on Arbitrum")
		assert.Contains(t, view, "7 tools executed")
	})
}

func TestChartBlock(t *testing.T) {
	t.Parallel()

	item := scry.ChartItem{
		ItemID: "chart-1",
		Config: scry.ChartConfig{
			ID:    "c1",
			Type:  "line",
			Title: "TVL over time",
			Raw:   json.RawMessage(`{"id":"c1","type":"line"}`),
		},
	}

	t.Run("collapsed shows title and type", func(t *testing.T) {
		t.Parallel()
		b := bt.NewChartBlock(item, testStyles())
		view := b.View(80)
		assert.Contains(t, view, "TVL over time")
		assert.Contains(t, view, "(line)")
		assert.NotContains(t, view, `"id":"c1"`)
	})

	t.Run("toggle reveals raw config", func(t *testing.T) {
		t.Parallel()
		b := bt.NewChartBlock(item, testStyles())
		expanded := toggle(t, b)
		assert.Contains(t, expanded.View(80), `"id":"c1"`)
	})

	t.Run("untitled chart gets a placeholder", func(t *testing.T) {
		t.Parallel()
		b := bt.NewChartBlock(scry.ChartItem{ItemID: "chart-2"}, testStyles())
		assert.Contains(t, b.View(80), "Chart")
	})
}

func TestCsvBlock(t *testing.T) {
	t.Parallel()

	b := bt.NewCsvBlock(scry.CsvItem{
		ItemID:   "csv-1",
		Title:    "TVL history",
		URL:      "https://example.com/tvl.csv",
		Filename: "tvl.csv",
		RowCount: 365,
	}, testStyles())
	view := b.View(80)
	assert.Contains(t, view, "TVL history")
	assert.Contains(t, view, "(365 rows)")
	assert.Contains(t, view, "https://example.com/tvl.csv")
}

func TestImagesBlock(t *testing.T) {
	t.Parallel()

	b := bt.NewImagesBlock(scry.ImagesItem{
		ItemID: "images-1",
		Images: []scry.StreamImage{
			{URL: "https://example.com/a.png", Alt: "protocol logo"},
			{URL: "https://example.com/b.png"},
		},
	}, testStyles())
	view := b.View(80)
	assert.Contains(t, view, "https://example.com/a.png")
	assert.Contains(t, view, "protocol logo")
	assert.Contains(t, view, "https://example.com/b.png")
}

func TestErrorBlock(t *testing.T) {
	t.Parallel()

	b := bt.NewErrorBlock(scry.ErrorItem{
		ItemID:  "error-1",
		Message: "query timed out",
		Code:    "TIMEOUT",
	}, testStyles())
	view := b.View(80)
	assert.Contains(t, view, "Error: query timed out")
	assert.Contains(t, view, "[TIMEOUT]")
}

func TestSuggestionsBlock(t *testing.T) {
	t.Parallel()

	t.Run("empty list renders nothing", func(t *testing.T) {
		t.Parallel()
		b := bt.NewSuggestionsBlock(testStyles())
		assert.Equal(t, "", b.View(80))
	})

	t.Run("labels joined on one footer", func(t *testing.T) {
		t.Parallel()
		b := bt.NewSuggestionsBlock(testStyles())
		b.SetSuggestions([]scry.Suggestion{
			{Label: "Show fees"},
			{Label: "Compare with Curve"},
		})
		view := b.View(80)
		assert.Contains(t, view, "Try:")
		assert.Contains(t, view, "Show fees")
		assert.Contains(t, view, "Compare with Curve")
	})
}
