package review

import "sermonscribe/api/internal/document"

// Action is the closed set of review state transitions. Every variant is
// handled exhaustively by Reduce; adding one is a single-point change.
type Action interface{ isAction() }

// Quote list CRUD.

type SetQuotes struct{ Quotes []QuoteReviewItem }

type AddQuote struct{ Quote QuoteReviewItem }

// UpdateQuote patches fields of one quote. Nil fields are untouched.
type UpdateQuote struct {
	ID            string
	Text          *string
	Reference     *document.Reference
	IsNonBiblical *bool
	Interjections []string
}

type RemoveQuote struct{ ID string }

type VerifyQuote struct {
	ID       string
	Verified bool
}

// Review mode, focus, and panel visibility.

type SetReviewMode struct{ Enabled bool }

type FocusQuote struct{ ID string }

type FocusNext struct{}

type FocusPrev struct{}

type SetPanelVisible struct{ Visible bool }

type SetFilter struct {
	Filter Filter
	Book   string
}

type SetSearchText struct{ Text string }

// Boundary edit mode: the logical preview/commit cycle, independent of
// any live pointer drag.

type EnterBoundaryEdit struct{ QuoteID string }

type PreviewBoundary struct{ Start, End int }

// ExitBoundaryEdit leaves edit mode, committing the preview into the
// quote's offsets when Commit is set.
type ExitBoundaryEdit struct{ Commit bool }

// Boundary drag: live pointer tracking.

type StartDrag struct {
	QuoteID string
	Edge    Edge
	Offset  int
}

// UpdateDrag carries the live pointer offset plus the paragraph spans the
// overlay sees, so the reducer can flag a would-merge without committing.
type UpdateDrag struct {
	Offset     int
	Paragraphs []ParagraphSpan
}

// CommitBoundary applies a debounced drag (or edit-mode) result to the
// quote's offsets and raises the merge negotiation when flagged.
type CommitBoundary struct {
	QuoteID string
	Start   int
	End     int
	Merge   []ParagraphSpan
}

type CancelDrag struct{}

// Quote creation workflow.

type BeginCreate struct {
	SelectedText string
	Paragraphs   []ParagraphSpan
	StartOffset  int
	EndOffset    int
}

type SetReferenceInput struct{ Text string }

type LookupStarted struct{ Input string }

// LookupResolved lands an external verse lookup. The reducer ignores it
// unless Input still matches the current reference input, so a superseded
// lookup never applies its result.
type LookupResolved struct {
	Input       string
	Found       bool
	VerseText   string
	Normalized  string
	Translation string
}

type ConfirmCreate struct{ QuoteID string }

type CancelCreate struct{}

// Interjection edit mode.

type BeginInterjectionEdit struct {
	QuoteID    string
	Candidates []Candidate
}

type ConfirmInterjection struct{ Index int }

type RejectInterjection struct{ Index int }

type EndInterjectionEdit struct{}

// Paragraph-merge negotiation.

type RequestMerge struct{ Paragraphs []ParagraphSpan }

type ConfirmMerge struct{}

type CancelMerge struct{}

type SetAutoConfirmMerge struct{ Enabled bool }

func (SetQuotes) isAction()             {}
func (AddQuote) isAction()              {}
func (UpdateQuote) isAction()           {}
func (RemoveQuote) isAction()           {}
func (VerifyQuote) isAction()           {}
func (SetReviewMode) isAction()         {}
func (FocusQuote) isAction()            {}
func (FocusNext) isAction()             {}
func (FocusPrev) isAction()             {}
func (SetPanelVisible) isAction()       {}
func (SetFilter) isAction()             {}
func (SetSearchText) isAction()         {}
func (EnterBoundaryEdit) isAction()     {}
func (PreviewBoundary) isAction()       {}
func (ExitBoundaryEdit) isAction()      {}
func (StartDrag) isAction()             {}
func (UpdateDrag) isAction()            {}
func (CommitBoundary) isAction()        {}
func (CancelDrag) isAction()            {}
func (BeginCreate) isAction()           {}
func (SetReferenceInput) isAction()     {}
func (LookupStarted) isAction()         {}
func (LookupResolved) isAction()        {}
func (ConfirmCreate) isAction()         {}
func (CancelCreate) isAction()          {}
func (BeginInterjectionEdit) isAction() {}
func (ConfirmInterjection) isAction()   {}
func (RejectInterjection) isAction()    {}
func (EndInterjectionEdit) isAction()   {}
func (RequestMerge) isAction()          {}
func (ConfirmMerge) isAction()          {}
func (CancelMerge) isAction()           {}
func (SetAutoConfirmMerge) isAction()   {}
