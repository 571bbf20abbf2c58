package review

import (
	"strings"

	"sermonscribe/api/internal/document"
)

// Filter selects which quotes the review panel shows.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterUnverified Filter = "unverified"
	FilterBook       Filter = "book"
)

// DefaultConfidenceThreshold gates which interjection candidates are
// shown. Display only: the reducer never auto-confirms a candidate.
const DefaultConfidenceThreshold = 0.5

// QuoteReviewItem is the UI projection of one quote block. The reducer
// holds a denormalized copy for fast updates; every committing action
// must be reconciled back into the AST, never left UI-only.
type QuoteReviewItem struct {
	ID            string
	Text          string
	Reference     *document.Reference
	IsNonBiblical bool
	IsReviewed    bool
	Interjections []string
	StartOffset   int
	EndOffset     int
	ParagraphID   string
}

// Edge names which end of a quote a boundary operation moves.
type Edge string

const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

// ParagraphSpan locates one paragraph's text within the document's
// running plain-text offsets.
type ParagraphSpan struct {
	ID          string
	Text        string
	StartOffset int
	EndOffset   int
}

// BoundaryEditState tracks the logical preview/commit cycle of boundary
// editing. It is deliberately separate from DragState: a user can be in
// boundary edit mode via keyboard without an active mouse drag.
type BoundaryEditState struct {
	QuoteID       string
	OriginalStart int
	OriginalEnd   int
	PreviewStart  int
	PreviewEnd    int
}

// DragState tracks a live pointer drag on one quote edge.
type DragState struct {
	QuoteID              string
	Edge                 Edge
	OriginalStart        int
	OriginalEnd          int
	Current              int
	WouldMergeParagraphs bool
	MergeParagraphIDs    []string
}

// PreviewRange returns the candidate [start,end] with the non-dragged
// edge held fixed at its original offset.
func (d *DragState) PreviewRange() (int, int) {
	if d.Edge == EdgeStart {
		return d.Current, d.OriginalEnd
	}
	return d.OriginalStart, d.Current
}

// CreationState tracks the select-text → reference → confirm workflow.
type CreationState struct {
	SelectedText   string
	Paragraphs     []ParagraphSpan
	StartOffset    int
	EndOffset      int
	ReferenceInput string
	Parsed         ParsedReference
	LookupPending  bool
	LookupInput    string
	VerseText      string
	Translation    string
	Normalized     string
}

// CandidateStatus is the per-candidate decision in interjection edit mode.
type CandidateStatus int

const (
	CandidatePending CandidateStatus = iota
	CandidateConfirmed
	CandidateRejected
)

// InterjectionEditState holds the pending candidate list for one quote,
// each independently confirmable or rejectable by index.
type InterjectionEditState struct {
	QuoteID    string
	Candidates []Candidate
	Statuses   []CandidateStatus
}

// State is the single record the reducer operates on.
type State struct {
	Quotes []QuoteReviewItem

	ReviewMode   bool
	FocusedID    string
	PanelVisible bool

	Filter     Filter
	FilterBook string
	SearchText string

	ConfidenceThreshold float64

	BoundaryEdit     *BoundaryEditState
	Drag             *DragState
	Creation         *CreationState
	InterjectionEdit *InterjectionEditState

	PendingMerge     *MergePreview
	AutoConfirmMerge bool
}

// NewState returns the initial review state.
func NewState() State {
	return State{Filter: FilterAll, ConfidenceThreshold: DefaultConfidenceThreshold}
}

// IsCreating reports whether the quote creation workflow is active.
func (s State) IsCreating() bool { return s.Creation != nil }

// findQuote returns the index of a quote by id, or -1. Mutating actions
// treat -1 as a no-op to tolerate stale UI callbacks racing a deletion.
func (s State) findQuote(id string) int {
	for i, q := range s.Quotes {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// VisibleQuotes applies the panel filter and search text.
func (s State) VisibleQuotes() []QuoteReviewItem {
	needle := strings.ToLower(strings.TrimSpace(s.SearchText))
	var out []QuoteReviewItem
	for _, q := range s.Quotes {
		switch s.Filter {
		case FilterUnverified:
			if q.IsReviewed {
				continue
			}
		case FilterBook:
			if q.Reference == nil || !strings.EqualFold(q.Reference.Book, s.FilterBook) {
				continue
			}
		}
		if needle != "" {
			haystack := strings.ToLower(q.Text)
			if q.Reference != nil {
				haystack += " " + strings.ToLower(q.Reference.NormalizedReference)
			}
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		out = append(out, q)
	}
	return out
}

// cloneQuotes copies the quote slice so reducer writes never alias the
// previous state.
func cloneQuotes(quotes []QuoteReviewItem) []QuoteReviewItem {
	out := make([]QuoteReviewItem, len(quotes))
	copy(out, quotes)
	return out
}
