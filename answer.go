package scry

import (
	"encoding/json"
	"time"
)

// Answer is one committed exchange result: the accumulated content plus the
// side-channel artifacts that arrived with it. A stopped or failed exchange
// commits a partial Answer (Stopped/Partial set) rather than discarding
// already-streamed output.
type Answer struct {
	SessionID string
	MessageID string
	Title     string

	Content           string
	Items             []Item
	InlineSuggestions string
	Suggestions       []Suggestion
	Charts            []ChartConfig
	ChartData         json.RawMessage
	Citations         []string
	CsvExports        []CsvExport
	Metadata          json.RawMessage

	Stopped   bool
	Partial   bool
	Timestamp time.Time
}

// Exchange pairs a question with its committed answer, for history display
// and persistence.
type Exchange struct {
	Question  string
	Answer    Answer
	Timestamp time.Time
}
