package scry

import "encoding/json"

// Event is a sealed interface representing one decoded unit of the agent's
// wire protocol — one per "data: " line. Events are purely semantic.
// Transport errors come from EventStream.Next()'s error return, not from
// events; an ErrorEvent is normal protocol traffic.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// TokenEvent carries one fragment of the streamed markdown answer.
type TokenEvent struct {
	Content string
}

func (TokenEvent) event() {}

// MessageIDEvent delivers the server-assigned message ID. It may arrive at
// any point in the stream, including after items have been created.
type MessageIDEvent struct {
	MessageID string
}

func (MessageIDEvent) event() {}

// ProgressEvent reports pipeline progress. When Research is non-nil the
// server is in research mode and the payload carries research telemetry
// instead of a plain loading stage.
type ProgressEvent struct {
	Content  string
	Stage    string
	Research *ResearchProgress
}

func (ProgressEvent) event() {}

// ResearchProgress is the research-mode telemetry nested in a ProgressEvent.
type ResearchProgress struct {
	Iteration         int      `json:"iteration"`
	TotalIterations   int      `json:"totalIterations"`
	Phase             string   `json:"phase"`
	DimensionsCovered []string `json:"dimensionsCovered"`
	DimensionsPending []string `json:"dimensionsPending"`
	Discoveries       []string `json:"discoveries"`
	ToolsExecuted     int      `json:"toolsExecuted"`
}

// SessionEvent delivers the server-assigned session ID.
type SessionEvent struct {
	SessionID string
}

func (SessionEvent) event() {}

// InlineSuggestionsEvent carries a markdown fragment of inline follow-up
// suggestions, kept separate from the main answer text.
type InlineSuggestionsEvent struct {
	Content string
}

func (InlineSuggestionsEvent) event() {}

// SuggestionsEvent carries the follow-up suggestion list.
type SuggestionsEvent struct {
	Suggestions []Suggestion
}

func (SuggestionsEvent) event() {}

// Suggestion is a normalized follow-up suggestion. The backend sends several
// shapes ({label,action,params}, {title,toolName,arguments}, bare strings);
// the decoder normalizes all of them to this one.
type Suggestion struct {
	Label  string          `json:"label"`
	Action string          `json:"action,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ChartsEvent carries one or more chart configurations plus their data.
// Data is either a JSON array shared by every chart in the batch or an
// object keyed by chart ID; ChartDataFor resolves the right slice.
type ChartsEvent struct {
	Charts []ChartConfig
	Data   json.RawMessage
}

func (ChartsEvent) event() {}

// ChartConfig describes one chart. ID, Type and Title are lifted out of the
// payload for addressing and display; Raw preserves the full configuration
// for renderers that understand more of it.
type ChartConfig struct {
	ID    string
	Type  string
	Title string
	Raw   json.RawMessage
}

// ChartDataFor resolves the data slice for one chart from a ChartsEvent
// payload: an array is shared by all charts; an object is keyed by chart ID,
// falling back to the whole object for charts that need multiple keys.
func ChartDataFor(chartID string, data json.RawMessage) json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(data, &byID); err != nil {
		// Array or scalar payload: shared by all charts.
		return data
	}
	if d, ok := byID[chartID]; ok {
		return d
	}
	return data
}

// CitationsEvent carries source citations for the answer text.
type CitationsEvent struct {
	Citations []string
}

func (CitationsEvent) event() {}

// CsvExportEvent announces downloadable CSV exports.
type CsvExportEvent struct {
	Exports []CsvExport
}

func (CsvExportEvent) event() {}

// CsvExport describes one downloadable CSV artifact.
type CsvExport struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	RowCount int    `json:"rowCount"`
}

// ImagesEvent carries generated images.
type ImagesEvent struct {
	Images []StreamImage
}

func (ImagesEvent) event() {}

// StreamImage is one generated image reference.
type StreamImage struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Alt      string `json:"alt,omitempty"`
}

// ErrorEvent is an in-band protocol error. The server may keep streaming
// after sending one, though it typically precedes stream close.
type ErrorEvent struct {
	Content     string
	Code        string
	Recoverable bool
}

func (ErrorEvent) event() {}

// TitleEvent delivers the generated session title.
type TitleEvent struct {
	Content string
}

func (TitleEvent) event() {}

// ResetEvent signals that the server is retrying internally. Already
// streamed content is NOT discarded on reset; only the progress message
// changes.
type ResetEvent struct {
	Content string
}

func (ResetEvent) event() {}

// MetadataEvent carries opaque answer metadata sent at the end of a stream.
type MetadataEvent struct {
	Metadata json.RawMessage
}

func (MetadataEvent) event() {}

// UnknownEvent preserves a well-formed event of an unrecognized type so the
// caller can log it instead of silently dropping protocol traffic.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (UnknownEvent) event() {}

// Interface compliance checks.
var (
	_ Event = TokenEvent{}
	_ Event = MessageIDEvent{}
	_ Event = ProgressEvent{}
	_ Event = SessionEvent{}
	_ Event = InlineSuggestionsEvent{}
	_ Event = SuggestionsEvent{}
	_ Event = ChartsEvent{}
	_ Event = CitationsEvent{}
	_ Event = CsvExportEvent{}
	_ Event = ImagesEvent{}
	_ Event = ErrorEvent{}
	_ Event = TitleEvent{}
	_ Event = ResetEvent{}
	_ Event = MetadataEvent{}
	_ Event = UnknownEvent{}
)
