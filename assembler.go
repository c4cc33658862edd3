package scry

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ThrottleInterval bounds how often token events alone can trigger an emit.
// Tokens arrive at sub-millisecond rates from the network layer; 50ms is a
// perceptual threshold, not a tunable correctness parameter.
const ThrottleInterval = 50 * time.Millisecond

// Assembler consumes decoded events and maintains the ordered set of
// renderable items for one exchange. Token events coalesce into at most one
// emission per ThrottleInterval window; every other item-affecting event
// flushes immediately, cancelling any pending timer.
//
// The assembler is safe for the one-writer-plus-timer access pattern: Feed is
// called from the session goroutine while the throttle timer fires on its
// own. The emit callback is always invoked outside the state lock with a
// copied snapshot, and snapshots are delivered in the order they were taken;
// a snapshot overtaken by a newer one before delivery is dropped.
type Assembler struct {
	mu   sync.Mutex
	emit func([]Item)

	deliverMu sync.Mutex
	emitSeq   uint64
	delivered uint64

	markdownID string
	text       strings.Builder
	citations  []string
	inline     strings.Builder

	order []string
	items map[string]Item

	suggestions []Suggestion
	charts      []ChartConfig
	chartData   json.RawMessage
	csvExports  []CsvExport
	metadata    json.RawMessage

	seq    int
	timer  *time.Timer
	closed bool
}

// NewAssembler creates an assembler for one exchange. The markdown item's ID
// is fixed here and never changes, even when the server assigns a message ID
// later in the stream. A non-empty seed pre-fills the markdown text for the
// reconnect path.
func NewAssembler(messageID, seed string) *Assembler {
	id := messageID
	if id == "" {
		id = "answer"
	}
	a := &Assembler{
		markdownID: id,
		items:      make(map[string]Item),
	}
	a.text.WriteString(seed)
	return a
}

// SetEmit installs the snapshot callback. If markdown has already
// accumulated, it emits once immediately so a late-attaching consumer is not
// left blank.
func (a *Assembler) SetEmit(emit func([]Item)) {
	a.mu.Lock()
	a.emit = emit
	if emit == nil || (a.text.Len() == 0 && len(a.order) == 0) {
		a.mu.Unlock()
		return
	}
	a.emitSeq++
	seq := a.emitSeq
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.deliver(emit, seq, snap)
}

// Feed applies one event to the item set. Events that do not affect items
// (session, title, message-id bookkeeping beyond recording, unknown) are
// ignored here; the session layer handles them.
func (a *Assembler) Feed(ev Event) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}

	immediate := true
	switch e := ev.(type) {
	case TokenEvent:
		// The loading indicator stays up while prose streams; charts,
		// errors, and stream end clear it.
		a.text.WriteString(e.Content)
		a.scheduleLocked()
		immediate = false
	case InlineSuggestionsEvent:
		a.inline.WriteString(e.Content)
		a.scheduleLocked()
		immediate = false
	case ProgressEvent:
		if e.Research != nil {
			a.upsertLocked(ResearchItem{
				Iteration:         e.Research.Iteration,
				TotalIterations:   e.Research.TotalIterations,
				Phase:             e.Research.Phase,
				DimensionsCovered: e.Research.DimensionsCovered,
				DimensionsPending: e.Research.DimensionsPending,
				Discoveries:       e.Research.Discoveries,
				ToolsExecuted:     e.Research.ToolsExecuted,
			})
		} else {
			a.upsertLocked(LoadingItem{Stage: e.Stage, Message: e.Content})
		}
	case ResetEvent:
		// Server-side retry: accumulated content is kept, only the
		// progress message changes.
		a.upsertLocked(LoadingItem{Stage: "reset", Message: e.Content})
	case ChartsEvent:
		a.removeLocked(LoadingItemID)
		for _, c := range e.Charts {
			id := c.ID
			if id == "" {
				id = a.nextIDLocked("chart")
			}
			a.upsertLocked(ChartItem{ItemID: id, Config: c, Data: ChartDataFor(c.ID, e.Data)})
		}
		a.charts = append(a.charts, e.Charts...)
		if a.chartData == nil {
			a.chartData = e.Data
		}
	case CitationsEvent:
		a.citations = append(a.citations, e.Citations...)
	case CsvExportEvent:
		for _, ex := range e.Exports {
			a.upsertLocked(CsvItem{
				ItemID:   a.nextIDLocked("csv"),
				Title:    ex.Title,
				URL:      ex.URL,
				Filename: ex.Filename,
				RowCount: ex.RowCount,
			})
		}
		a.csvExports = append(a.csvExports, e.Exports...)
	case ImagesEvent:
		a.upsertLocked(ImagesItem{ItemID: a.nextIDLocked("images"), Images: e.Images})
	case SuggestionsEvent:
		a.upsertLocked(SuggestionsItem{ItemID: "suggestions", Suggestions: e.Suggestions})
		a.suggestions = e.Suggestions
	case ErrorEvent:
		a.removeLocked(LoadingItemID)
		a.removeLocked(ResearchItemID)
		a.upsertLocked(ErrorItem{
			ItemID:      a.nextIDLocked("error"),
			Message:     e.Content,
			Code:        e.Code,
			Recoverable: e.Recoverable,
		})
	case MetadataEvent:
		a.upsertLocked(MetadataItem{ItemID: "metadata", Metadata: e.Metadata})
		a.metadata = e.Metadata
	default:
		a.mu.Unlock()
		return
	}

	if !immediate {
		a.mu.Unlock()
		return
	}
	a.flushLocked()
}

// ClearTransients removes any live loading/research items, emitting if
// something was removed. Called when the stream ends so progress displays do
// not linger past the answer.
func (a *Assembler) ClearTransients() {
	a.mu.Lock()
	_, hadLoading := a.items[LoadingItemID]
	_, hadResearch := a.items[ResearchItemID]
	if !hadLoading && !hadResearch {
		a.mu.Unlock()
		return
	}
	a.removeLocked(LoadingItemID)
	a.removeLocked(ResearchItemID)
	a.flushLocked()
}

// Snapshot returns the full current item list: the markdown item first if any
// text has accumulated, then all other items in first-insertion order.
func (a *Assembler) Snapshot() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Committable returns the snapshot with transient progress items filtered
// out. This is the view persisted when an exchange finishes or is stopped.
func (a *Assembler) Committable() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := a.snapshotLocked()
	out := snap[:0]
	for _, it := range snap {
		if !Transient(it) {
			out = append(out, it)
		}
	}
	return out
}

// Content returns the accumulated markdown text.
func (a *Assembler) Content() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()
}

// InlineSuggestions returns the accumulated inline-suggestion markdown.
func (a *Assembler) InlineSuggestions() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inline.String()
}

// Accumulated returns the non-item accumulator fields for composing a
// committed answer.
func (a *Assembler) Accumulated() (suggestions []Suggestion, charts []ChartConfig, chartData json.RawMessage, citations []string, csvExports []CsvExport, metadata json.RawMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.suggestions, a.charts, a.chartData, a.citations, a.csvExports, a.metadata
}

// Close flushes any buffered markdown and stops the throttle timer. After
// Close the assembler drops all further events and never emits again.
func (a *Assembler) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	pending := a.timer != nil
	if pending {
		a.timer.Stop()
		a.timer = nil
	}
	if !pending {
		a.closed = true
		a.mu.Unlock()
		return
	}
	// Final flush for markdown buffered behind the throttle.
	emit := a.emit
	a.emitSeq++
	seq := a.emitSeq
	snap := a.snapshotLocked()
	a.closed = true
	a.mu.Unlock()
	if emit != nil {
		a.deliver(emit, seq, snap)
	}
}

func (a *Assembler) scheduleLocked() {
	if a.timer != nil {
		return
	}
	a.timer = time.AfterFunc(ThrottleInterval, func() {
		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return
		}
		a.timer = nil
		a.flushLocked()
	})
}

// flushLocked emits the current snapshot and releases the lock. Any pending
// throttle timer is cancelled so the window restarts after a structural
// flush.
func (a *Assembler) flushLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	emit := a.emit
	if emit == nil {
		a.mu.Unlock()
		return
	}
	a.emitSeq++
	seq := a.emitSeq
	snap := a.snapshotLocked()
	a.mu.Unlock()
	a.deliver(emit, seq, snap)
}

// deliver hands one snapshot to the consumer. Snapshots carry the full state,
// so one that was overtaken by a newer snapshot between releasing the state
// lock and delivery is dropped; delivering it late would regress the
// consumer's view. deliverMu is never held while acquiring mu, so the
// callback may safely call back into the assembler.
func (a *Assembler) deliver(emit func([]Item), seq uint64, snap []Item) {
	a.deliverMu.Lock()
	defer a.deliverMu.Unlock()
	if seq <= a.delivered {
		return
	}
	a.delivered = seq
	emit(snap)
}

func (a *Assembler) snapshotLocked() []Item {
	snap := make([]Item, 0, len(a.order)+1)
	if a.text.Len() > 0 || len(a.citations) > 0 {
		snap = append(snap, MarkdownItem{
			ItemID:    a.markdownID,
			Text:      a.text.String(),
			Citations: a.citations,
		})
	}
	for _, id := range a.order {
		if it, ok := a.items[id]; ok {
			snap = append(snap, it)
		}
	}
	return snap
}

// upsertLocked adds an item or replaces it in place, preserving the position
// it held when first inserted.
func (a *Assembler) upsertLocked(it Item) {
	id := it.ID()
	if _, ok := a.items[id]; !ok {
		a.order = append(a.order, id)
	}
	a.items[id] = it
}

// removeLocked deletes an item together with its order slot, so a later
// recreation under the same id occupies exactly one position.
func (a *Assembler) removeLocked(id string) {
	if _, ok := a.items[id]; !ok {
		return
	}
	delete(a.items, id)
	for i, existing := range a.order {
		if existing == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *Assembler) nextIDLocked(kind string) string {
	a.seq++
	return fmt.Sprintf("%s-%d", kind, a.seq)
}
