package scry

import "encoding/json"

// Fixed IDs for transient items. These are deliberately independent of the
// server-assigned message ID, which may arrive after the items are first
// created; renaming a live item mid-stream would orphan it in consumers.
const (
	LoadingItemID  = "stream-loading"
	ResearchItemID = "stream-research"
)

// Item is a sealed interface representing one renderable unit of a streamed
// answer. Items are added or replaced by ID, never reordered relative to
// first insertion — except the Markdown item, which is always presented
// first in a snapshot.
type Item interface {
	item()
	ID() string
}

// MarkdownItem is the single accumulated answer text. Exactly one exists per
// exchange and its Text only ever grows.
type MarkdownItem struct {
	ItemID    string
	Text      string
	Citations []string
}

func (MarkdownItem) item() {}

// ID returns the item's stable identifier.
func (i MarkdownItem) ID() string { return i.ItemID }

// ChartItem is one chart artifact. Immutable once created.
type ChartItem struct {
	ItemID string
	Config ChartConfig
	Data   json.RawMessage
}

func (ChartItem) item() {}

// ID returns the item's stable identifier.
func (i ChartItem) ID() string { return i.ItemID }

// CsvItem is one downloadable CSV artifact. Immutable once created.
type CsvItem struct {
	ItemID   string
	Title    string
	URL      string
	Filename string
	RowCount int
}

func (CsvItem) item() {}

// ID returns the item's stable identifier.
func (i CsvItem) ID() string { return i.ItemID }

// ImagesItem is a set of generated images. Immutable once created.
type ImagesItem struct {
	ItemID string
	Images []StreamImage
}

func (ImagesItem) item() {}

// ID returns the item's stable identifier.
func (i ImagesItem) ID() string { return i.ItemID }

// LoadingItem is the transient progress indicator. At most one is live and
// it never appears in a committed answer.
type LoadingItem struct {
	Stage   string
	Message string
}

func (LoadingItem) item() {}

// ID returns the fixed loading item identifier.
func (LoadingItem) ID() string { return LoadingItemID }

// ResearchItem is the transient research-mode telemetry display. At most one
// is live and it never appears in a committed answer.
type ResearchItem struct {
	Iteration         int
	TotalIterations   int
	Phase             string
	DimensionsCovered []string
	DimensionsPending []string
	Discoveries       []string
	ToolsExecuted     int
}

func (ResearchItem) item() {}

// ID returns the fixed research item identifier.
func (ResearchItem) ID() string { return ResearchItemID }

// ErrorItem surfaces an in-band protocol error to the consumer.
type ErrorItem struct {
	ItemID      string
	Message     string
	Code        string
	Recoverable bool
}

func (ErrorItem) item() {}

// ID returns the item's stable identifier.
func (i ErrorItem) ID() string { return i.ItemID }

// SuggestionsItem is the follow-up suggestion list.
type SuggestionsItem struct {
	ItemID      string
	Suggestions []Suggestion
}

func (SuggestionsItem) item() {}

// ID returns the item's stable identifier.
func (i SuggestionsItem) ID() string { return i.ItemID }

// MetadataItem carries opaque answer metadata.
type MetadataItem struct {
	ItemID   string
	Metadata json.RawMessage
}

func (MetadataItem) item() {}

// ID returns the item's stable identifier.
func (i MetadataItem) ID() string { return i.ItemID }

// Transient reports whether an item is excluded from committed answers
// (progress displays that only make sense while the stream is live).
func Transient(it Item) bool {
	switch it.(type) {
	case LoadingItem, ResearchItem:
		return true
	default:
		return false
	}
}

// Interface compliance checks.
var (
	_ Item = MarkdownItem{}
	_ Item = ChartItem{}
	_ Item = CsvItem{}
	_ Item = ImagesItem{}
	_ Item = LoadingItem{}
	_ Item = ResearchItem{}
	_ Item = ErrorItem{}
	_ Item = SuggestionsItem{}
	_ Item = MetadataItem{}
)
