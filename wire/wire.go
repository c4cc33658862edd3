// Package wire decodes the agent's streaming wire protocol: a
// newline-delimited HTTP response body where each relevant line is
// "data: <json>" and the JSON document's type field selects the event kind.
//
// Decoding is tolerant by contract: lines without the data prefix are
// ignored, and malformed JSON on a line is dropped (logged, never surfaced) —
// a single corrupt line must not abort the stream. Transport failures are the
// stream's problem, not the decoder's.
package wire

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/fwojciec/scry"
)

var dataPrefix = []byte("data: ")

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithDecoderLogger sets the logger for dropped lines. Defaults to a no-op
// logger.
func WithDecoderLogger(logger zerolog.Logger) DecoderOption {
	return func(d *Decoder) { d.logger = logger }
}

// Decoder is the push half of the protocol: Feed it successive byte chunks
// and it returns the complete events they contain, in arrival order. The only
// retained state is the partial trailing line held back until its newline
// arrives. Chunks may split lines anywhere, including mid-way through a
// multi-byte UTF-8 character; buffering raw bytes and splitting on '\n'
// (which never occurs inside a multi-byte sequence) makes that safe.
type Decoder struct {
	logger zerolog.Logger
	buf    []byte
}

// NewDecoder creates a decoder for one response body.
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends a chunk and returns the events encoded in the complete lines
// now available. An incomplete trailing line is held for the next call.
func (d *Decoder) Feed(chunk []byte) []scry.Event {
	d.buf = append(d.buf, chunk...)
	var events []scry.Event
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return events
		}
		line := d.buf[:i]
		d.buf = d.buf[i+1:]
		if ev, ok := d.decodeLine(line); ok {
			events = append(events, ev)
		}
	}
}

// Flush discards any buffered partial line. Called at end of stream: an
// unterminated trailing line is never emitted.
func (d *Decoder) Flush() {
	d.buf = nil
}

func (d *Decoder) decodeLine(line []byte) (scry.Event, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	payload := line[len(dataPrefix):]

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		d.logger.Debug().Err(err).Bytes("line", payload).Msg("dropping malformed line")
		return nil, false
	}

	ev, err := parseEvent(envelope.Type, payload)
	if err != nil {
		d.logger.Debug().Err(err).Str("type", envelope.Type).Msg("dropping malformed event")
		return nil, false
	}
	return ev, true
}

// parseEvent maps one well-formed line payload to its event. Unrecognized
// types are preserved as UnknownEvent rather than dropped, so the caller can
// log protocol drift.
func parseEvent(typ string, payload []byte) (scry.Event, error) {
	switch typ {
	case "token":
		var p struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.TokenEvent{Content: p.Content}, nil

	case "message_id":
		var p struct {
			MessageID string `json:"messageId"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.MessageIDEvent{MessageID: p.MessageID}, nil

	case "progress":
		var p struct {
			Content  string                 `json:"content"`
			Stage    string                 `json:"stage"`
			Research *scry.ResearchProgress `json:"researchProgress"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.ProgressEvent{Content: p.Content, Stage: p.Stage, Research: p.Research}, nil

	case "session":
		var p struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.SessionEvent{SessionID: p.SessionID}, nil

	case "inline_suggestions":
		var p struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.InlineSuggestionsEvent{Content: p.Content}, nil

	case "suggestions":
		var p struct {
			Suggestions []json.RawMessage `json:"suggestions"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.SuggestionsEvent{Suggestions: normalizeSuggestions(p.Suggestions)}, nil

	case "charts":
		var p struct {
			Charts    []json.RawMessage `json:"charts"`
			ChartData json.RawMessage   `json:"chartData"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		charts := make([]scry.ChartConfig, 0, len(p.Charts))
		for _, raw := range p.Charts {
			var meta struct {
				ID    string `json:"id"`
				Type  string `json:"type"`
				Title string `json:"title"`
			}
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, err
			}
			charts = append(charts, scry.ChartConfig{
				ID:    meta.ID,
				Type:  meta.Type,
				Title: meta.Title,
				Raw:   raw,
			})
		}
		return scry.ChartsEvent{Charts: charts, Data: p.ChartData}, nil

	case "citations":
		var p struct {
			Citations []string `json:"citations"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.CitationsEvent{Citations: p.Citations}, nil

	case "csv_export":
		var p struct {
			Exports []scry.CsvExport `json:"exports"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.CsvExportEvent{Exports: p.Exports}, nil

	case "images":
		var p struct {
			Images []scry.StreamImage `json:"images"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.ImagesEvent{Images: p.Images}, nil

	case "error":
		var p struct {
			Content     string `json:"content"`
			Code        string `json:"code"`
			Recoverable bool   `json:"recoverable"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.ErrorEvent{Content: p.Content, Code: p.Code, Recoverable: p.Recoverable}, nil

	case "title":
		var p struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.TitleEvent{Content: p.Content}, nil

	case "reset":
		var p struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.ResetEvent{Content: p.Content}, nil

	case "metadata":
		var p struct {
			Metadata json.RawMessage `json:"metadata"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return scry.MetadataEvent{Metadata: p.Metadata}, nil

	default:
		return scry.UnknownEvent{Type: typ, Raw: append([]byte(nil), payload...)}, nil
	}
}

// normalizeSuggestions flattens the several suggestion shapes the backend
// sends — bare strings, {label, action, params} and {title, toolName,
// arguments} — into the one canonical form. Entries that fit none of the
// shapes are skipped.
func normalizeSuggestions(raw []json.RawMessage) []scry.Suggestion {
	out := make([]scry.Suggestion, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if s != "" {
				out = append(out, scry.Suggestion{Label: s})
			}
			continue
		}
		var obj struct {
			Label     string          `json:"label"`
			Action    string          `json:"action"`
			Params    json.RawMessage `json:"params"`
			Title     string          `json:"title"`
			ToolName  string          `json:"toolName"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(r, &obj); err != nil {
			continue
		}
		sug := scry.Suggestion{Label: obj.Label, Action: obj.Action, Params: obj.Params}
		if sug.Label == "" {
			sug.Label = obj.Title
		}
		if sug.Action == "" {
			sug.Action = obj.ToolName
		}
		if sug.Params == nil {
			sug.Params = obj.Arguments
		}
		if sug.Label == "" {
			continue
		}
		out = append(out, sug)
	}
	return out
}
