package wire_test

import (
	"reflect"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwojciec/scry"
	"github.com/fwojciec/scry/wire"
)

func decodeAll(t *testing.T, chunks ...string) []scry.Event {
	t.Helper()
	d := wire.NewDecoder()
	var events []scry.Event
	for _, c := range chunks {
		events = append(events, d.Feed([]byte(c))...)
	}
	d.Flush()
	return events
}

func TestDecoderTokenEvents(t *testing.T) {
	t.Parallel()

	events := decodeAll(t,
		"data: {\"type\":\"token\",\"content\":\"Hello\"}\n",
		"data: {\"type\":\"token\",\"content\":\" world\"}\n",
	)

	require.Len(t, events, 2)
	assert.Equal(t, scry.TokenEvent{Content: "Hello"}, events[0])
	assert.Equal(t, scry.TokenEvent{Content: " world"}, events[1])
}

func TestDecoderIgnoresNonDataLines(t *testing.T) {
	t.Parallel()

	events := decodeAll(t,
		": keepalive comment\n",
		"event: something\n",
		"\n",
		"data: {\"type\":\"token\",\"content\":\"x\"}\n",
	)

	require.Len(t, events, 1)
	assert.Equal(t, scry.TokenEvent{Content: "x"}, events[0])
}

func TestDecoderDropsMalformedLineSilently(t *testing.T) {
	t.Parallel()

	events := decodeAll(t,
		"data: {\"type\":\"token\",\"content\":\"a\"}\n",
		"data: {not json\n",
		"data: {\"type\":\"token\",\"content\":\"b\"}\n",
	)

	require.Len(t, events, 2)
	assert.Equal(t, scry.TokenEvent{Content: "a"}, events[0])
	assert.Equal(t, scry.TokenEvent{Content: "b"}, events[1])
}

func TestDecoderHoldsPartialLineAcrossChunks(t *testing.T) {
	t.Parallel()

	d := wire.NewDecoder()
	events := d.Feed([]byte("data: {\"type\":\"token\",\"con"))
	assert.Empty(t, events)

	events = d.Feed([]byte("tent\":\"joined\"}\n"))
	require.Len(t, events, 1)
	assert.Equal(t, scry.TokenEvent{Content: "joined"}, events[0])
}

func TestDecoderDiscardsUnterminatedTrailingLine(t *testing.T) {
	t.Parallel()

	d := wire.NewDecoder()
	events := d.Feed([]byte("data: {\"type\":\"token\",\"content\":\"done\"}\ndata: {\"type\":\"token\""))
	require.Len(t, events, 1)

	d.Flush()
	assert.Empty(t, d.Feed([]byte(",\"content\":\"never\"}\n")))
}

func TestDecoderTrimsCarriageReturn(t *testing.T) {
	t.Parallel()

	events := decodeAll(t, "data: {\"type\":\"token\",\"content\":\"crlf\"}\r\n")
	require.Len(t, events, 1)
	assert.Equal(t, scry.TokenEvent{Content: "crlf"}, events[0])
}

func TestDecoderProgressEvent(t *testing.T) {
	t.Parallel()

	events := decodeAll(t, `data: {"type":"progress","content":"Analyzing...","stage":"analysis"}`+"\n")
	require.Len(t, events, 1)
	assert.Equal(t, scry.ProgressEvent{Content: "Analyzing...", Stage: "analysis"}, events[0])
}

func TestDecoderResearchProgress(t *testing.T) {
	t.Parallel()

	line := `data: {"type":"progress","stage":"research","researchProgress":{"iteration":2,"totalIterations":5,"phase":"exploring","dimensionsCovered":["tvl"],"dimensionsPending":["fees","volume"],"discoveries":["finding one"],"toolsExecuted":7}}` + "\n"
	events := decodeAll(t, line)

	require.Len(t, events, 1)
	pe, ok := events[0].(scry.ProgressEvent)
	require.True(t, ok)
	require.NotNil(t, pe.Research)
	assert.Equal(t, 2, pe.Research.Iteration)
	assert.Equal(t, 5, pe.Research.TotalIterations)
	assert.Equal(t, "exploring", pe.Research.Phase)
	assert.Equal(t, []string{"fees", "volume"}, pe.Research.DimensionsPending)
	assert.Equal(t, 7, pe.Research.ToolsExecuted)
}

func TestDecoderChartsEvent(t *testing.T) {
	t.Parallel()

	line := `data: {"type":"charts","charts":[{"id":"c1","type":"line","title":"TVL"},{"id":"c2","type":"bar","title":"Fees"}],"chartData":{"c1":[1,2],"c2":[3]}}` + "\n"
	events := decodeAll(t, line)

	require.Len(t, events, 1)
	ce, ok := events[0].(scry.ChartsEvent)
	require.True(t, ok)
	require.Len(t, ce.Charts, 2)
	assert.Equal(t, "c1", ce.Charts[0].ID)
	assert.Equal(t, "line", ce.Charts[0].Type)
	assert.Equal(t, "TVL", ce.Charts[0].Title)
	assert.JSONEq(t, `{"id":"c1","type":"line","title":"TVL"}`, string(ce.Charts[0].Raw))
	assert.JSONEq(t, `[1,2]`, string(scry.ChartDataFor("c1", ce.Data)))
	assert.JSONEq(t, `[3]`, string(scry.ChartDataFor("c2", ce.Data)))
}

func TestDecoderSuggestionNormalization(t *testing.T) {
	t.Parallel()

	line := `data: {"type":"suggestions","suggestions":["plain text",{"label":"Show fees","action":"fees","params":{"protocol":"uniswap"}},{"title":"Compare TVL","toolName":"compare","arguments":{"a":1}},{"params":{}},42]}` + "\n"
	events := decodeAll(t, line)

	require.Len(t, events, 1)
	se, ok := events[0].(scry.SuggestionsEvent)
	require.True(t, ok)
	require.Len(t, se.Suggestions, 3)
	assert.Equal(t, "plain text", se.Suggestions[0].Label)
	assert.Equal(t, "Show fees", se.Suggestions[1].Label)
	assert.Equal(t, "fees", se.Suggestions[1].Action)
	assert.Equal(t, "Compare TVL", se.Suggestions[2].Label)
	assert.Equal(t, "compare", se.Suggestions[2].Action)
	assert.JSONEq(t, `{"a":1}`, string(se.Suggestions[2].Params))
}

func TestDecoderUnknownTypePreserved(t *testing.T) {
	t.Parallel()

	events := decodeAll(t, `data: {"type":"telemetry","payload":123}`+"\n")
	require.Len(t, events, 1)
	ue, ok := events[0].(scry.UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, "telemetry", ue.Type)
	assert.JSONEq(t, `{"type":"telemetry","payload":123}`, string(ue.Raw))
}

func TestDecoderRemainingEventKinds(t *testing.T) {
	t.Parallel()

	events := decodeAll(t,
		`data: {"type":"message_id","messageId":"m-1"}`+"\n",
		`data: {"type":"session","sessionId":"s-1"}`+"\n",
		`data: {"type":"inline_suggestions","content":"- try fees"}`+"\n",
		`data: {"type":"citations","citations":["https://example.com"]}`+"\n",
		`data: {"type":"csv_export","exports":[{"title":"TVL","url":"https://x/tvl.csv","filename":"tvl.csv","rowCount":10}]}`+"\n",
		`data: {"type":"images","images":[{"url":"https://x/a.png","mimeType":"image/png"}]}`+"\n",
		`data: {"type":"error","content":"boom","code":"E1","recoverable":true}`+"\n",
		`data: {"type":"title","content":"Uniswap fees"}`+"\n",
		`data: {"type":"reset","content":"Retrying..."}`+"\n",
	)

	require.Len(t, events, 9)
	assert.Equal(t, scry.MessageIDEvent{MessageID: "m-1"}, events[0])
	assert.Equal(t, scry.SessionEvent{SessionID: "s-1"}, events[1])
	assert.Equal(t, scry.InlineSuggestionsEvent{Content: "- try fees"}, events[2])
	assert.Equal(t, scry.CitationsEvent{Citations: []string{"https://example.com"}}, events[3])
	assert.Equal(t, scry.CsvExportEvent{Exports: []scry.CsvExport{{Title: "TVL", URL: "https://x/tvl.csv", Filename: "tvl.csv", RowCount: 10}}}, events[4])
	assert.Equal(t, scry.ImagesEvent{Images: []scry.StreamImage{{URL: "https://x/a.png", MimeType: "image/png"}}}, events[5])
	assert.Equal(t, scry.ErrorEvent{Content: "boom", Code: "E1", Recoverable: true}, events[6])
	assert.Equal(t, scry.TitleEvent{Content: "Uniswap fees"}, events[7])
	assert.Equal(t, scry.ResetEvent{Content: "Retrying..."}, events[8])
}

// Chunking at arbitrary byte boundaries, including mid-UTF-8-codepoint and
// mid-line, must never change the decoded event sequence.
func TestDecoderChunkBoundaryInvariance(t *testing.T) {
	t.Parallel()

	body := "data: {\"type\":\"token\",\"content\":\"héllo wörld\"}\n" +
		"data: {\"type\":\"progress\",\"content\":\"рабо́та ✓\",\"stage\":\"analysis\"}\n" +
		"garbage line\n" +
		"data: {\"type\":\"token\",\"content\":\"日本語のトークン\"}\n" +
		"data: {\"type\":\"title\",\"content\":\"Résumé\"}\n"

	whole := decodeAll(t, body)
	require.Len(t, whole, 4)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("chunk boundaries never change the event sequence", prop.ForAll(
		func(cuts []int) bool {
			sort.Ints(cuts)
			d := wire.NewDecoder()
			var events []scry.Event
			prev := 0
			for _, cut := range cuts {
				if cut < prev || cut > len(body) {
					continue
				}
				events = append(events, d.Feed([]byte(body[prev:cut]))...)
				prev = cut
			}
			events = append(events, d.Feed([]byte(body[prev:]))...)
			d.Flush()
			return reflect.DeepEqual(events, whole)
		},
		gen.SliceOf(gen.IntRange(0, len(body))),
	))

	properties.TestingRun(t)
}
