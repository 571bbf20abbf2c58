package review

import (
	"testing"

	"sermonscribe/api/internal/document"
)

var parsedJohn = document.Reference{Book: "John", Chapter: 3, VerseStart: 16, NormalizedReference: "John 3:16"}

func reviewFixture() State {
	s := NewState()
	s = Reduce(s, SetQuotes{Quotes: []QuoteReviewItem{
		{ID: "q1", Text: "For God so loved the world", StartOffset: 10, EndOffset: 36, ParagraphID: "p1"},
		{ID: "q2", Text: "I can do all things", StartOffset: 50, EndOffset: 69, ParagraphID: "p2"},
	}})
	return s
}

func TestReduceQuoteCreationLifecycle(t *testing.T) {
	s := reviewFixture()

	s = Reduce(s, BeginCreate{
		SelectedText: "The Lord is my shepherd",
		Paragraphs:   []ParagraphSpan{{ID: "p3", Text: "The Lord is my shepherd", StartOffset: 70, EndOffset: 93}},
		StartOffset:  70,
		EndOffset:    93,
	})
	if !s.IsCreating() {
		t.Fatal("IsCreating = false after BeginCreate")
	}

	s = Reduce(s, SetReferenceInput{Text: "Psalm 23:1"})
	if !s.Creation.Parsed.Valid {
		t.Fatal("reference input did not parse")
	}

	s = Reduce(s, LookupStarted{Input: "Psalm 23:1"})
	if !s.Creation.LookupPending {
		t.Fatal("LookupPending = false after LookupStarted")
	}
	s = Reduce(s, LookupResolved{Input: "Psalm 23:1", Found: true, VerseText: "The LORD is my shepherd; I shall not want.", Normalized: "Psalms 23:1", Translation: "KJV"})
	if s.Creation.LookupPending {
		t.Fatal("LookupPending = true after LookupResolved")
	}
	if s.Creation.VerseText == "" {
		t.Fatal("verse text not applied")
	}

	s = Reduce(s, ConfirmCreate{QuoteID: "q3"})
	if s.IsCreating() {
		t.Fatal("IsCreating = true after ConfirmCreate")
	}
	if len(s.Quotes) != 3 {
		t.Fatalf("got %d quotes, want 3", len(s.Quotes))
	}
	q := s.Quotes[2]
	if q.ID != "q3" || q.IsReviewed {
		t.Errorf("created quote = %+v, want id q3 and not reviewed", q)
	}
	if q.Reference == nil || q.Reference.NormalizedReference != "Psalms 23:1" {
		t.Errorf("created quote reference = %+v", q.Reference)
	}
	if s.PendingMerge != nil {
		t.Error("single-paragraph creation raised a merge request")
	}

	s = Reduce(s, VerifyQuote{ID: "q3", Verified: true})
	if !s.Quotes[2].IsReviewed {
		t.Error("IsReviewed = false after VerifyQuote")
	}
}

func TestReduceConfirmCreateSpanningParagraphsRequestsMerge(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, BeginCreate{
		SelectedText: "end of one start of two",
		Paragraphs: []ParagraphSpan{
			{ID: "p1", Text: "end of one", StartOffset: 0, EndOffset: 10},
			{ID: "p2", Text: "start of two", StartOffset: 11, EndOffset: 23},
		},
		StartOffset: 5,
		EndOffset:   18,
	})
	s = Reduce(s, SetReferenceInput{Text: "John 3:16"})
	s = Reduce(s, ConfirmCreate{QuoteID: "q3"})

	if s.PendingMerge == nil {
		t.Fatal("multi-paragraph creation did not raise a merge request")
	}
	if !s.PendingMerge.RequiresConfirmation {
		t.Error("merge did not require confirmation")
	}
	s = Reduce(s, ConfirmMerge{})
	if s.PendingMerge != nil {
		t.Error("PendingMerge survived ConfirmMerge")
	}
}

func TestReduceConfirmCreateWithoutReferenceIsNonBiblical(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, BeginCreate{SelectedText: "as my grandmother used to say"})
	s = Reduce(s, ConfirmCreate{})
	q := s.Quotes[len(s.Quotes)-1]
	if !q.IsNonBiblical || q.Reference != nil {
		t.Errorf("quote without reference = %+v, want non-biblical", q)
	}
}

func TestReduceSupersededLookupIgnored(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, BeginCreate{SelectedText: "text"})
	s = Reduce(s, SetReferenceInput{Text: "John 3:16"})
	s = Reduce(s, LookupStarted{Input: "John 3:16"})
	s = Reduce(s, SetReferenceInput{Text: "John 3:17"})
	s = Reduce(s, LookupResolved{Input: "John 3:16", Found: true, VerseText: "stale"})

	if s.Creation.VerseText != "" {
		t.Errorf("stale lookup result applied: %q", s.Creation.VerseText)
	}
}

func TestReduceStaleQuoteActionsNoOp(t *testing.T) {
	s := reviewFixture()
	before := len(s.Quotes)

	cases := []Action{
		VerifyQuote{ID: "gone", Verified: true},
		RemoveQuote{ID: "gone"},
		UpdateQuote{ID: "gone"},
		EnterBoundaryEdit{QuoteID: "gone"},
		StartDrag{QuoteID: "gone", Edge: EdgeEnd},
		CommitBoundary{QuoteID: "gone", Start: 1, End: 2},
		BeginInterjectionEdit{QuoteID: "gone"},
	}
	for _, action := range cases {
		next := Reduce(s, action)
		if len(next.Quotes) != before || next.Drag != nil || next.BoundaryEdit != nil || next.InterjectionEdit != nil {
			t.Errorf("%T against a missing quote changed state", action)
		}
	}
}

func TestReduceDragHoldsFixedEdge(t *testing.T) {
	s := reviewFixture()
	paragraphs := []ParagraphSpan{
		{ID: "p1", StartOffset: 0, EndOffset: 40},
		{ID: "p2", StartOffset: 41, EndOffset: 80},
	}

	s = Reduce(s, StartDrag{QuoteID: "q1", Edge: EdgeEnd, Offset: 36})
	s = Reduce(s, UpdateDrag{Offset: 60, Paragraphs: paragraphs})

	start, end := s.Drag.PreviewRange()
	if start != 10 {
		t.Errorf("start moved to %d during an end drag", start)
	}
	if end != 60 {
		t.Errorf("end = %d, want 60", end)
	}
	if !s.Drag.WouldMergeParagraphs {
		t.Error("range spanning two paragraphs did not flag a merge")
	}

	// The dragged end may not cross the fixed start.
	s = Reduce(s, UpdateDrag{Offset: 2, Paragraphs: paragraphs})
	start, end = s.Drag.PreviewRange()
	if start != 10 || end != 10 {
		t.Errorf("crossing drag gave [%d,%d], want [10,10]", start, end)
	}

	s = Reduce(s, CancelDrag{})
	if s.Drag != nil {
		t.Error("Drag survived CancelDrag")
	}
	if s.Quotes[0].StartOffset != 10 || s.Quotes[0].EndOffset != 36 {
		t.Error("cancelled drag changed committed offsets")
	}
}

func TestReduceCommitBoundary(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, StartDrag{QuoteID: "q1", Edge: EdgeEnd, Offset: 36})
	s = Reduce(s, CommitBoundary{QuoteID: "q1", Start: 10, End: 34})

	if s.Quotes[0].StartOffset != 10 || s.Quotes[0].EndOffset != 34 {
		t.Errorf("committed range = [%d,%d], want [10,34]", s.Quotes[0].StartOffset, s.Quotes[0].EndOffset)
	}
	if s.Drag != nil {
		t.Error("Drag survived CommitBoundary")
	}
	if s.PendingMerge != nil {
		t.Error("single-paragraph commit raised a merge request")
	}
}

func TestReduceCommitBoundaryWithMergeSuspendsCommit(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, StartDrag{QuoteID: "q1", Edge: EdgeEnd, Offset: 36})
	s = Reduce(s, CommitBoundary{QuoteID: "q1", Start: 10, End: 60, Merge: []ParagraphSpan{
		{ID: "p1", Text: "one", StartOffset: 0, EndOffset: 40},
		{ID: "p2", Text: "two", StartOffset: 41, EndOffset: 80},
	}})

	if s.Quotes[0].StartOffset != 10 || s.Quotes[0].EndOffset != 36 {
		t.Errorf("offsets = [%d,%d], want [10,36] until the merge resolves",
			s.Quotes[0].StartOffset, s.Quotes[0].EndOffset)
	}
	if s.Drag != nil {
		t.Error("Drag survived CommitBoundary")
	}
	if s.PendingMerge == nil {
		t.Fatal("merge-flagged commit did not raise a merge request")
	}
	if s.PendingMerge.MergedText != "one two" {
		t.Errorf("MergedText = %q", s.PendingMerge.MergedText)
	}
	if s.PendingMerge.QuoteID != "q1" || s.PendingMerge.QuoteStart != 10 || s.PendingMerge.QuoteEnd != 60 {
		t.Errorf("suspended commit = %q [%d,%d], want q1 [10,60]",
			s.PendingMerge.QuoteID, s.PendingMerge.QuoteStart, s.PendingMerge.QuoteEnd)
	}
}

func TestReduceBoundaryEditMode(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, EnterBoundaryEdit{QuoteID: "q1"})
	if s.BoundaryEdit == nil || s.BoundaryEdit.PreviewStart != 10 || s.BoundaryEdit.PreviewEnd != 36 {
		t.Fatalf("BoundaryEdit = %+v", s.BoundaryEdit)
	}

	s = Reduce(s, PreviewBoundary{Start: 8, End: 40})
	if s.Quotes[0].StartOffset != 10 {
		t.Error("preview changed committed offsets")
	}

	s = Reduce(s, ExitBoundaryEdit{Commit: true})
	if s.BoundaryEdit != nil {
		t.Error("BoundaryEdit survived exit")
	}
	if s.Quotes[0].StartOffset != 8 || s.Quotes[0].EndOffset != 40 {
		t.Errorf("committed range = [%d,%d], want [8,40]", s.Quotes[0].StartOffset, s.Quotes[0].EndOffset)
	}
}

func TestReduceInterjectionEdit(t *testing.T) {
	s := reviewFixture()
	candidates := []Candidate{
		{Text: "Amen", StartOffset: 5, EndOffset: 9, Confidence: 0.9},
		{Text: "glory", StartOffset: 12, EndOffset: 17, Confidence: 0.6},
	}
	s = Reduce(s, BeginInterjectionEdit{QuoteID: "q1", Candidates: candidates})
	if s.InterjectionEdit == nil || len(s.InterjectionEdit.Statuses) != 2 {
		t.Fatalf("InterjectionEdit = %+v", s.InterjectionEdit)
	}

	s = Reduce(s, ConfirmInterjection{Index: 0})
	s = Reduce(s, RejectInterjection{Index: 1})
	if got := s.InterjectionEdit.Statuses; got[0] != CandidateConfirmed || got[1] != CandidateRejected {
		t.Errorf("Statuses = %v", got)
	}
	if len(s.Quotes[0].Interjections) != 1 || s.Quotes[0].Interjections[0] != "Amen" {
		t.Errorf("quote interjections = %v", s.Quotes[0].Interjections)
	}

	// Out-of-range index is a no-op.
	if next := Reduce(s, ConfirmInterjection{Index: 9}); len(next.Quotes[0].Interjections) != 1 {
		t.Error("out-of-range confirm changed state")
	}

	s = Reduce(s, EndInterjectionEdit{})
	if s.InterjectionEdit != nil {
		t.Error("InterjectionEdit survived EndInterjectionEdit")
	}
}

func TestReduceFocusCycle(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, FocusNext{})
	if s.FocusedID != "q1" {
		t.Errorf("FocusedID = %q, want q1", s.FocusedID)
	}
	s = Reduce(s, FocusNext{})
	if s.FocusedID != "q2" {
		t.Errorf("FocusedID = %q, want q2", s.FocusedID)
	}
	// At the end, next is a no-op.
	s = Reduce(s, FocusNext{})
	if s.FocusedID != "q2" {
		t.Errorf("FocusedID = %q after overrun, want q2", s.FocusedID)
	}
	s = Reduce(s, FocusPrev{})
	if s.FocusedID != "q1" {
		t.Errorf("FocusedID = %q, want q1", s.FocusedID)
	}
}

func TestReduceRemoveQuoteClearsDependentState(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, FocusQuote{ID: "q1"})
	s = Reduce(s, EnterBoundaryEdit{QuoteID: "q1"})
	s = Reduce(s, RemoveQuote{ID: "q1"})

	if len(s.Quotes) != 1 || s.Quotes[0].ID != "q2" {
		t.Fatalf("Quotes = %+v", s.Quotes)
	}
	if s.FocusedID != "" || s.BoundaryEdit != nil {
		t.Error("dependent state survived quote removal")
	}
}

func TestReduceVisibleQuotesFilters(t *testing.T) {
	s := reviewFixture()
	s = Reduce(s, UpdateQuote{ID: "q1", Reference: &parsedJohn})
	s = Reduce(s, VerifyQuote{ID: "q1", Verified: true})

	s = Reduce(s, SetFilter{Filter: FilterUnverified})
	if got := s.VisibleQuotes(); len(got) != 1 || got[0].ID != "q2" {
		t.Errorf("unverified filter = %+v", got)
	}

	s = Reduce(s, SetFilter{Filter: FilterBook, Book: "John"})
	if got := s.VisibleQuotes(); len(got) != 1 || got[0].ID != "q1" {
		t.Errorf("book filter = %+v", got)
	}

	s = Reduce(s, SetFilter{Filter: FilterAll})
	s = Reduce(s, SetSearchText{Text: "all things"})
	if got := s.VisibleQuotes(); len(got) != 1 || got[0].ID != "q2" {
		t.Errorf("search filter = %+v", got)
	}
}

func TestReducePurity(t *testing.T) {
	s := reviewFixture()
	_ = Reduce(s, VerifyQuote{ID: "q1", Verified: true})
	if s.Quotes[0].IsReviewed {
		t.Error("Reduce mutated its input state")
	}
}
