package docctx

import (
	"context"
	"testing"

	"sermonscribe/api/internal/document"
	"sermonscribe/api/internal/review"
)

type fakeLookup struct {
	result LookupResult
	err    error
	calls  []string
}

func (f *fakeLookup) Lookup(_ context.Context, reference string) (LookupResult, error) {
	f.calls = append(f.calls, reference)
	return f.result, f.err
}

func overlayContext() *DocumentContext {
	return New(document.NewState(testRoot("Sunday Sermon")), nil)
}

func TestQuoteLifecycle(t *testing.T) {
	c := overlayContext()
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	paragraphs := c.Paragraphs()
	if len(paragraphs) != 1 {
		t.Fatalf("got %d paragraphs, want 1", len(paragraphs))
	}

	// "God so loved" inside "For God so loved the world."
	o.BeginCreate("God so loved", paragraphs, 4, 16)
	if !o.State().IsCreating() {
		t.Fatal("IsCreating = false after BeginCreate")
	}
	o.SetReferenceInput("John 3:16")

	quoteID, err := o.ConfirmCreate()
	if err != nil {
		t.Fatal(err)
	}
	if o.State().IsCreating() {
		t.Fatal("IsCreating = true after ConfirmCreate")
	}

	// The AST gained the quote block, carved out of the paragraph.
	node := c.Root().FindNode(quoteID)
	if node == nil || node.Type != document.NodeQuoteBlock {
		t.Fatalf("quote node = %+v", node)
	}
	if node.Metadata == nil || node.Metadata.Reference.NormalizedReference != "John 3:16" {
		t.Fatalf("quote metadata = %+v", node.Metadata)
	}
	if node.PlainText() != "God so loved" {
		t.Errorf("quote text = %q", node.PlainText())
	}

	// The review projection carries the new, unreviewed item.
	s := o.State()
	var item *review.QuoteReviewItem
	for i := range s.Quotes {
		if s.Quotes[i].ID == quoteID {
			item = &s.Quotes[i]
		}
	}
	if item == nil {
		t.Fatal("created quote missing from review state")
	}
	if item.IsReviewed {
		t.Error("new quote starts reviewed")
	}

	// Verifying flips both the projection and the AST metadata.
	if err := o.Verify(quoteID, true); err != nil {
		t.Fatal(err)
	}
	if !c.Root().FindNode(quoteID).Metadata.UserVerified {
		t.Error("UserVerified = false in the AST after verify")
	}
	for _, q := range o.State().Quotes {
		if q.ID == quoteID && !q.IsReviewed {
			t.Error("IsReviewed = false in the projection after verify")
		}
	}
}

func TestOverlayStaleActionsAreNoOps(t *testing.T) {
	c := overlayContext()
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	before := c.EditVersion()
	if err := o.Verify("gone", true); err != nil {
		t.Fatal(err)
	}
	if err := o.Remove("gone"); err != nil {
		t.Fatal(err)
	}
	if err := o.SetText("gone", "x"); err != nil {
		t.Fatal(err)
	}
	if c.EditVersion() != before {
		t.Error("stale overlay actions committed AST updates")
	}
}

func TestOverlayRemoveConvertsQuoteToParagraph(t *testing.T) {
	c := overlayContext()
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	o.BeginCreate("God so loved", c.Paragraphs(), 4, 16)
	o.SetReferenceInput("John 3:16")
	quoteID, err := o.ConfirmCreate()
	if err != nil {
		t.Fatal(err)
	}

	if err := o.Remove(quoteID); err != nil {
		t.Fatal(err)
	}
	node := c.Root().FindNode(quoteID)
	if node == nil || node.Type != document.NodeParagraph {
		t.Fatalf("removed quote = %+v, want a paragraph with the same id", node)
	}
	for _, q := range o.State().Quotes {
		if q.ID == quoteID {
			t.Error("removed quote still in review state")
		}
	}
}

func TestOverlayConfirmMergeCollapsesParagraphs(t *testing.T) {
	root := &document.RootNode{
		ID: "doc_ctx_test",
		Children: []*document.Node{
			{ID: "p1", Type: document.NodeParagraph, Children: []*document.Node{
				{ID: "t1", Type: document.NodeText, Content: "First paragraph. "},
			}},
			{ID: "p2", Type: document.NodeParagraph, Children: []*document.Node{
				{ID: "t2", Type: document.NodeText, Content: " Second paragraph."},
			}},
		},
	}
	c := New(document.NewState(root), nil)
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	o.Dispatch(review.RequestMerge{Paragraphs: c.Paragraphs()})
	if o.State().PendingMerge == nil {
		t.Fatal("no pending merge after request")
	}

	survivor, err := o.ConfirmMerge()
	if err != nil {
		t.Fatal(err)
	}
	if survivor != "p1" {
		t.Errorf("survivor = %q, want p1", survivor)
	}
	got := c.Root()
	if len(got.Children) != 1 {
		t.Fatalf("got %d blocks after merge, want 1", len(got.Children))
	}
	if text := got.Children[0].PlainText(); text != "First paragraph. Second paragraph." {
		t.Errorf("merged text = %q", text)
	}
	if o.State().PendingMerge != nil {
		t.Error("PendingMerge survived confirmation")
	}
}

func TestOverlayInterjectionConfirmWritesAST(t *testing.T) {
	root := &document.RootNode{
		ID: "doc_ctx_test",
		Children: []*document.Node{
			{ID: "q1", Type: document.NodeQuoteBlock,
				Children: []*document.Node{
					{ID: "t1", Type: document.NodeText, Content: "For God so loved Amen the world"},
				},
				Metadata: &document.QuoteMetadata{
					Reference: document.Reference{Book: "John", Chapter: 3, VerseStart: 16, NormalizedReference: "John 3:16"},
				},
			},
		},
	}
	c := New(document.NewState(root), nil)
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	o.BeginInterjectionEdit("q1")
	edit := o.State().InterjectionEdit
	if edit == nil || len(edit.Candidates) == 0 {
		t.Fatalf("InterjectionEdit = %+v, want a candidate for Amen", edit)
	}
	if edit.Candidates[0].Text != "Amen" {
		t.Fatalf("candidate = %+v", edit.Candidates[0])
	}

	if err := o.ConfirmInterjection(0); err != nil {
		t.Fatal(err)
	}
	quote := c.Root().FindNode("q1")
	var foundInterjection bool
	for _, child := range quote.Children {
		if child.Type == document.NodeInterjection && child.Content == "Amen" {
			foundInterjection = true
		}
	}
	if !foundInterjection {
		t.Error("confirmed interjection missing from the AST")
	}
	if len(quote.Metadata.Interjections) != 1 || !quote.Metadata.Interjections[0].Confirmed {
		t.Errorf("metadata interjections = %+v", quote.Metadata.Interjections)
	}
	if o.State().InterjectionEdit.Statuses[0] != review.CandidateConfirmed {
		t.Error("candidate status not confirmed")
	}

	// Rejection leaves the AST alone.
	o.RejectInterjection(0)
	if got := len(c.Root().FindNode("q1").Metadata.Interjections); got != 1 {
		t.Errorf("rejection changed AST interjections: %d", got)
	}
}

func TestOverlayDragFlow(t *testing.T) {
	c := overlayContext()
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	o.BeginCreate("God so loved", c.Paragraphs(), 4, 16)
	o.SetReferenceInput("John 3:16")
	quoteID, err := o.ConfirmCreate()
	if err != nil {
		t.Fatal(err)
	}
	o.Refresh()

	var quote review.QuoteReviewItem
	for _, q := range o.State().Quotes {
		if q.ID == quoteID {
			quote = q
		}
	}
	if quote.ID == "" {
		t.Fatal("quote missing after refresh")
	}

	o.StartDrag(quoteID, review.EdgeEnd, quote.EndOffset)
	o.UpdateDrag(quote.EndOffset + 4)
	if o.State().Drag == nil {
		t.Fatal("no drag state")
	}
	start, end := o.State().Drag.PreviewRange()
	if start != quote.StartOffset {
		t.Errorf("start moved to %d during an end drag, want %d", start, quote.StartOffset)
	}
	if end != quote.EndOffset+4 {
		t.Errorf("end = %d, want %d", end, quote.EndOffset+4)
	}

	o.CancelDrag()
	if o.State().Drag != nil {
		t.Error("Drag survived CancelDrag")
	}
}

// Two paragraphs whose running offsets are p1 [0,24) and p2 [25,48).
func twoParagraphRoot() *document.RootNode {
	return &document.RootNode{
		ID:      "doc_ctx_test",
		Version: 1,
		Children: []*document.Node{
			{ID: "p1", Type: document.NodeParagraph, Version: 1, Children: []*document.Node{
				{ID: "t1", Type: document.NodeText, Version: 1, Content: "He said For God so loved"},
			}},
			{ID: "p2", Type: document.NodeParagraph, Version: 1, Children: []*document.Node{
				{ID: "t2", Type: document.NodeText, Version: 1, Content: "the world and sat down."},
			}},
		},
	}
}

func TestOverlayCreateAcrossParagraphs(t *testing.T) {
	c := New(document.NewState(twoParagraphRoot()), nil)
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	// "For God so loved the world" spans both paragraphs.
	o.BeginCreate("For God so loved the world", c.Paragraphs(), 8, 34)
	o.SetReferenceInput("John 3:16")
	quoteID, err := o.ConfirmCreate()
	if err != nil {
		t.Fatal(err)
	}

	node := c.Root().FindNode(quoteID)
	if node == nil || node.PlainText() != "For God so loved the world" {
		t.Fatalf("AST quote = %+v, want the full selection", node)
	}
	for _, q := range o.State().Quotes {
		if q.ID == quoteID && q.Text != node.PlainText() {
			t.Errorf("review text %q diverged from AST %q", q.Text, node.PlainText())
		}
	}

	// The carve left two remainders; the merge targets them, not the
	// original selection spans.
	pending := o.State().PendingMerge
	if pending == nil {
		t.Fatal("cross-paragraph creation raised no merge")
	}
	if pending.MergedText != "He said and sat down." {
		t.Errorf("MergedText = %q", pending.MergedText)
	}

	survivor, err := o.ConfirmMerge()
	if err != nil {
		t.Fatalf("ConfirmMerge() error = %v", err)
	}
	if survivor != "p1" {
		t.Errorf("survivor = %q, want p1", survivor)
	}
	if got := c.Root().FindNode("p1").PlainText(); got != "He said and sat down." {
		t.Errorf("merged remainder = %q", got)
	}
	if c.Root().FindNode("p2") != nil {
		t.Error("merged-away remainder still present")
	}
}

func TestOverlayAutoConfirmMergeAppliesImmediately(t *testing.T) {
	c := New(document.NewState(twoParagraphRoot()), nil)
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	o.Dispatch(review.SetAutoConfirmMerge{Enabled: true})
	o.BeginCreate("For God so loved the world", c.Paragraphs(), 8, 34)
	if _, err := o.ConfirmCreate(); err != nil {
		t.Fatal(err)
	}

	if o.State().PendingMerge != nil {
		t.Error("PendingMerge survived auto-confirm")
	}
	if got := c.Root().FindNode("p1").PlainText(); got != "He said and sat down." {
		t.Errorf("remainders not merged: %q", got)
	}
	if c.Root().FindNode("p2") != nil {
		t.Error("merged-away remainder still present")
	}
}

func TestOverlayBoundaryCommitPersistsInAST(t *testing.T) {
	c := overlayContext()
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	o.BeginCreate("God so loved", c.Paragraphs(), 4, 16)
	quoteID, err := o.ConfirmCreate()
	if err != nil {
		t.Fatal(err)
	}

	// Shrink the end from 16 to 8, settle the commit.
	o.StartDrag(quoteID, review.EdgeEnd, 16)
	o.UpdateDrag(8)
	o.EndDrag()
	o.committer.Flush()

	if got := c.Root().FindNode(quoteID).PlainText(); got != "God" {
		t.Fatalf("AST quote after commit = %q, want %q", got, "God")
	}

	// Re-projecting from the tree must keep the committed extent.
	o.Refresh()
	for _, q := range o.State().Quotes {
		if q.ID == quoteID && (q.Text != "God" || q.EndOffset != 7) {
			t.Errorf("refreshed quote = %q [%d,%d), want %q ending at 7", q.Text, q.StartOffset, q.EndOffset, "God")
		}
	}

	// The expelled text became a paragraph sibling after the quote.
	children := c.Root().Children
	if len(children) != 4 || children[2].PlainText() != "so loved" {
		t.Errorf("blocks = %d, want expelled %q paragraph", len(children), "so loved")
	}
}

func TestOverlayBoundaryMergeSuspendsCommit(t *testing.T) {
	root := &document.RootNode{
		ID:      "doc_ctx_test",
		Version: 1,
		Children: []*document.Node{
			{ID: "q1", Type: document.NodeQuoteBlock, Version: 1,
				Children: []*document.Node{{ID: "t1", Type: document.NodeText, Version: 1, Content: "For God"}},
				Metadata: &document.QuoteMetadata{
					Reference: document.Reference{Book: "John", Chapter: 3, VerseStart: 16, NormalizedReference: "John 3:16"},
				},
			},
			{ID: "p1", Type: document.NodeParagraph, Version: 1, Children: []*document.Node{
				{ID: "t2", Type: document.NodeText, Version: 1, Content: "so loved"},
			}},
			{ID: "p2", Type: document.NodeParagraph, Version: 1, Children: []*document.Node{
				{ID: "t3", Type: document.NodeText, Version: 1, Content: "the world."},
			}},
		},
	}
	c := New(document.NewState(root), nil)
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	// Drag the end from 7 to 20, across both paragraphs.
	o.StartDrag("q1", review.EdgeEnd, 7)
	o.UpdateDrag(20)
	if d := o.State().Drag; d == nil || !d.WouldMergeParagraphs {
		t.Fatalf("drag = %+v, want a would-merge flag", o.State().Drag)
	}
	o.EndDrag()
	o.committer.Flush()

	// The commit is suspended on the merge: nothing moved yet.
	if got := c.Root().FindNode("q1").PlainText(); got != "For God" {
		t.Fatalf("AST quote changed before confirmation: %q", got)
	}
	if q := o.State().Quotes[0]; q.EndOffset != 7 {
		t.Errorf("offsets committed before confirmation: [%d,%d)", q.StartOffset, q.EndOffset)
	}
	pending := o.State().PendingMerge
	if pending == nil || pending.QuoteID != "q1" || pending.QuoteEnd != 20 {
		t.Fatalf("PendingMerge = %+v, want suspended q1 boundary ending at 20", pending)
	}

	quoteID, err := o.ConfirmMerge()
	if err != nil {
		t.Fatalf("ConfirmMerge() error = %v", err)
	}
	if quoteID != "q1" {
		t.Errorf("ConfirmMerge() = %q, want q1", quoteID)
	}
	if got := c.Root().FindNode("q1").PlainText(); got != "For God so loved the" {
		t.Errorf("AST quote after confirmation = %q", got)
	}
	if c.Root().FindNode("p1") != nil {
		t.Error("swallowed paragraph survived")
	}
	if got := c.Root().FindNode("p2").PlainText(); got != "world." {
		t.Errorf("truncated paragraph = %q", got)
	}
	if q := o.State().Quotes[0]; q.EndOffset != 20 {
		t.Errorf("re-projected extent = [%d,%d), want end 20", q.StartOffset, q.EndOffset)
	}
}

func TestOverlayExitBoundaryEditCommitsToAST(t *testing.T) {
	c := overlayContext()
	o := NewQuoteOverlay(c, nil)
	defer o.Close()

	o.BeginCreate("God so loved", c.Paragraphs(), 4, 16)
	quoteID, err := o.ConfirmCreate()
	if err != nil {
		t.Fatal(err)
	}

	o.Dispatch(review.EnterBoundaryEdit{QuoteID: quoteID})
	o.Dispatch(review.PreviewBoundary{Start: 4, End: 8})
	if err := o.ExitBoundaryEdit(true); err != nil {
		t.Fatalf("ExitBoundaryEdit() error = %v", err)
	}
	if o.State().BoundaryEdit != nil {
		t.Error("BoundaryEdit survived exit")
	}
	if got := c.Root().FindNode(quoteID).PlainText(); got != "God" {
		t.Errorf("AST quote after keyboard commit = %q, want %q", got, "God")
	}
}

func TestOverlayLookupGuard(t *testing.T) {
	lookup := &fakeLookup{result: LookupResult{Found: true, VerseText: "For God so loved...", NormalizedReference: "John 3:16", Translation: "KJV"}}
	c := overlayContext()
	o := NewQuoteOverlay(c, lookup)
	defer o.Close()

	o.BeginCreate("text", nil, 0, 4)

	// Invalid input never reaches the service.
	o.SetReferenceInput("not a reference")
	o.lookupDebounce.Flush()
	if len(lookup.calls) != 0 {
		t.Fatalf("lookup called for invalid input: %v", lookup.calls)
	}

	o.SetReferenceInput("John 3:16")
	o.lookupDebounce.Flush()
	if len(lookup.calls) != 1 {
		t.Fatalf("lookup calls = %v, want one", lookup.calls)
	}
	if got := o.State().Creation.VerseText; got != "For God so loved..." {
		t.Errorf("VerseText = %q", got)
	}
}
