package document

import (
	"strings"
	"testing"
)

func TestRemoveQuoteConvertsToParagraph(t *testing.T) {
	root := sampleRoot()
	if !root.RemoveQuote("q1") {
		t.Fatal("RemoveQuote(q1) = false, want true")
	}
	n := root.FindNode("q1")
	if n == nil || n.Type != NodeParagraph {
		t.Fatalf("quote node after removal = %+v, want paragraph with same id", n)
	}
	if n.Metadata != nil {
		t.Error("paragraph retained quote metadata")
	}
	for _, child := range n.Children {
		if child.Type == NodeInterjection {
			t.Error("interjection child survived quote removal")
		}
	}
	if got := n.PlainText(); got != "For God so loved the world, amen that he gave his only Son." {
		t.Errorf("paragraph text = %q", got)
	}
}

func TestRemoveQuoteMissingIDIsNoop(t *testing.T) {
	root := sampleRoot()
	if root.RemoveQuote("nope") {
		t.Error("RemoveQuote on missing id = true, want false")
	}
}

func TestSetQuoteVerified(t *testing.T) {
	root := sampleRoot()
	before := root.Children[1].Version
	if !root.SetQuoteVerified("q1", true) {
		t.Fatal("SetQuoteVerified = false")
	}
	quote := root.FindNode("q1")
	if !quote.Metadata.UserVerified {
		t.Error("userVerified not set")
	}
	if quote.Version != before+1 {
		t.Errorf("version = %d, want %d", quote.Version, before+1)
	}
	// Paragraph ids are not quotes.
	if root.SetQuoteVerified("p1", true) {
		t.Error("SetQuoteVerified on paragraph = true, want false")
	}
}

func TestSetQuoteReferenceClearsNonBiblical(t *testing.T) {
	root := sampleRoot()
	root.Children[1].Metadata.IsNonBiblical = true
	ok := root.SetQuoteReference("q1", Reference{
		Book: "Romans", Chapter: 8, VerseStart: 28, NormalizedReference: "Romans 8:28",
	}, "And we know that all things work together for good", "ESV")
	if !ok {
		t.Fatal("SetQuoteReference = false")
	}
	meta := root.FindNode("q1").Metadata
	if meta.Reference.NormalizedReference != "Romans 8:28" {
		t.Errorf("normalized reference = %q", meta.Reference.NormalizedReference)
	}
	if meta.IsNonBiblical {
		t.Error("non-biblical flag survived a concrete reference")
	}
	if meta.Detection.Translation != "ESV" {
		t.Errorf("translation = %q", meta.Detection.Translation)
	}
}

func TestAddInterjectionSplitsText(t *testing.T) {
	root := &RootNode{
		ID: "doc", Version: 1,
		Children: []*Node{{
			ID: "q1", Type: NodeQuoteBlock, Version: 1,
			Children: []*Node{{ID: "t1", Type: NodeText, Version: 1, Content: "Blessed are the poor, amen, in spirit"}},
			Metadata: &QuoteMetadata{Reference: Reference{Book: "Matthew", Chapter: 5, VerseStart: 3}},
		}},
	}
	metaID, err := root.AddInterjection("q1", "amen", strings.Index("Blessed are the poor, amen, in spirit", "amen"))
	if err != nil {
		t.Fatalf("AddInterjection() error = %v", err)
	}
	quote := root.FindNode("q1")
	if len(quote.Children) != 3 {
		t.Fatalf("children = %d, want 3 (text, interjection, text)", len(quote.Children))
	}
	if quote.Children[1].Type != NodeInterjection || quote.Children[1].Content != "amen" {
		t.Errorf("middle child = %+v, want interjection %q", quote.Children[1], "amen")
	}
	if quote.Children[1].MetadataID != metaID {
		t.Error("interjection node does not link to metadata id")
	}
	if len(quote.Metadata.Interjections) != 1 || !quote.Metadata.Interjections[0].Confirmed {
		t.Errorf("metadata interjections = %+v", quote.Metadata.Interjections)
	}
	if got := quote.PlainText(); got != "Blessed are the poor, amen, in spirit" {
		t.Errorf("quote text changed: %q", got)
	}
}

func TestAddInterjectionRejectsMismatch(t *testing.T) {
	root := sampleRoot()
	if _, err := root.AddInterjection("q1", "hallelujah", 0); err == nil {
		t.Error("AddInterjection with mismatched text succeeded")
	}
}

func TestMergeParagraphs(t *testing.T) {
	root := &RootNode{
		ID: "doc", Version: 1,
		Children: []*Node{
			NewParagraph(NewText("First paragraph. ")),
			NewParagraph(NewText(" Second paragraph.")),
			NewParagraph(NewText("Untouched.")),
		},
	}
	first, second := root.Children[0].ID, root.Children[1].ID

	survivor, err := root.MergeParagraphs([]string{second, first})
	if err != nil {
		t.Fatalf("MergeParagraphs() error = %v", err)
	}
	if survivor != first {
		t.Errorf("survivor = %s, want earliest paragraph %s", survivor, first)
	}
	if len(root.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(root.Children))
	}
	if got := root.Children[0].PlainText(); got != "First paragraph. Second paragraph." {
		t.Errorf("merged text = %q", got)
	}
	if root.FindNode(second) != nil {
		t.Error("merged-away paragraph still present")
	}
}

func TestMergeParagraphsNeedsTwo(t *testing.T) {
	root := sampleRoot()
	if _, err := root.MergeParagraphs([]string{"p1"}); err == nil {
		t.Error("MergeParagraphs with one id succeeded")
	}
}

func TestCreateQuoteFromSelection(t *testing.T) {
	root := &RootNode{
		ID: "doc", Version: 1,
		Children: []*Node{NewParagraph(NewText("He said For God so loved the world and sat down."))},
	}
	paraID := root.Children[0].ID
	text := root.Children[0].PlainText()
	start := strings.Index(text, "For God")
	end := start + len("For God so loved the world")

	quoteID, err := root.CreateQuoteFromSelection(paraID, start, end, QuoteMetadata{
		Reference: Reference{Book: "John", Chapter: 3, VerseStart: 16},
		Detection: Detection{Confidence: 1.0},
	})
	if err != nil {
		t.Fatalf("CreateQuoteFromSelection() error = %v", err)
	}
	if len(root.Children) != 3 {
		t.Fatalf("children = %d, want before/quote/after", len(root.Children))
	}
	quote := root.FindNode(quoteID)
	if quote == nil || quote.Type != NodeQuoteBlock {
		t.Fatalf("quote node = %+v", quote)
	}
	if got := quote.PlainText(); got != "For God so loved the world" {
		t.Errorf("quote text = %q", got)
	}
	if root.Children[0].PlainText() != "He said" || root.Children[2].PlainText() != "and sat down." {
		t.Errorf("surrounding paragraphs = %q / %q", root.Children[0].PlainText(), root.Children[2].PlainText())
	}
}

func TestCreateQuoteFromSelectionBadRange(t *testing.T) {
	root := &RootNode{ID: "doc", Children: []*Node{NewParagraph(NewText("short"))}}
	if _, err := root.CreateQuoteFromSelection(root.Children[0].ID, 3, 99, QuoteMetadata{}); err == nil {
		t.Error("out-of-range selection succeeded")
	}
}

func TestCreateQuoteFromSpanAcrossParagraphs(t *testing.T) {
	root := &RootNode{
		ID: "doc", Version: 1,
		Children: []*Node{
			NewParagraph(NewText("He said For God so loved")),
			NewParagraph(NewText("the world and sat down.")),
		},
	}
	first, second := root.Children[0].ID, root.Children[1].ID
	start := strings.Index("He said For God so loved", "For God")
	end := len("the world")

	quoteID, err := root.CreateQuoteFromSpan([]string{first, second}, start, end, QuoteMetadata{
		Reference: Reference{Book: "John", Chapter: 3, VerseStart: 16},
	})
	if err != nil {
		t.Fatalf("CreateQuoteFromSpan() error = %v", err)
	}
	if len(root.Children) != 3 {
		t.Fatalf("children = %d, want before/quote/after", len(root.Children))
	}
	if got := root.FindNode(quoteID).PlainText(); got != "For God so loved the world" {
		t.Errorf("quote text = %q", got)
	}
	// Both remainders keep their paragraph ids so later merges resolve.
	if root.Children[0].ID != first || root.Children[0].PlainText() != "He said" {
		t.Errorf("leading remainder = %s %q", root.Children[0].ID, root.Children[0].PlainText())
	}
	if root.Children[2].ID != second || root.Children[2].PlainText() != "and sat down." {
		t.Errorf("trailing remainder = %s %q", root.Children[2].ID, root.Children[2].PlainText())
	}
}

func TestCreateQuoteFromSpanSwallowsMiddleParagraphs(t *testing.T) {
	root := &RootNode{
		ID: "doc", Version: 1,
		Children: []*Node{
			NewParagraph(NewText("Intro For God")),
			NewParagraph(NewText("so loved")),
			NewParagraph(NewText("the world outro")),
		},
	}
	ids := []string{root.Children[0].ID, root.Children[1].ID, root.Children[2].ID}
	middle := ids[1]

	quoteID, err := root.CreateQuoteFromSpan(ids, len("Intro "), len("the world"), QuoteMetadata{})
	if err != nil {
		t.Fatalf("CreateQuoteFromSpan() error = %v", err)
	}
	if got := root.FindNode(quoteID).PlainText(); got != "For God so loved the world" {
		t.Errorf("quote text = %q", got)
	}
	if root.FindNode(middle) != nil {
		t.Error("wholly selected paragraph survived the carve")
	}
}

func TestCreateQuoteFromSpanRejectsNonAdjacent(t *testing.T) {
	root := &RootNode{
		ID: "doc", Version: 1,
		Children: []*Node{
			NewParagraph(NewText("one")),
			NewParagraph(NewText("two")),
			NewParagraph(NewText("three")),
		},
	}
	ids := []string{root.Children[0].ID, root.Children[2].ID}
	if _, err := root.CreateQuoteFromSpan(ids, 0, 5, QuoteMetadata{}); err == nil {
		t.Error("non-adjacent selection succeeded")
	}
}

// Fixture for reslice tests: "He said" [0,7), quote "For God so loved
// the world" [8,34), "and sat down." [35,48) in running offsets.
func resliceRoot() (*RootNode, string) {
	quote := &Node{
		ID: "q1", Type: NodeQuoteBlock, Version: 1,
		Children: []*Node{NewText("For God so loved the world")},
		Metadata: &QuoteMetadata{Reference: Reference{Book: "John", Chapter: 3, VerseStart: 16}},
	}
	root := &RootNode{
		ID: "doc", Version: 1,
		Children: []*Node{
			NewParagraph(NewText("He said")),
			quote,
			NewParagraph(NewText("and sat down.")),
		},
	}
	return root, quote.ID
}

func TestResliceQuoteShrinkExpelsTail(t *testing.T) {
	root, quoteID := resliceRoot()
	if err := root.ResliceQuote(quoteID, 8, 24); err != nil {
		t.Fatalf("ResliceQuote() error = %v", err)
	}
	if got := root.FindNode(quoteID).PlainText(); got != "For God so loved" {
		t.Errorf("quote text = %q", got)
	}
	if len(root.Children) != 4 {
		t.Fatalf("children = %d, want expelled tail paragraph", len(root.Children))
	}
	if got := root.Children[2].PlainText(); got != "the world" {
		t.Errorf("expelled paragraph = %q", got)
	}
	if got := root.Children[3].PlainText(); got != "and sat down." {
		t.Errorf("trailing paragraph = %q", got)
	}
}

func TestResliceQuoteGrowConsumesNeighbors(t *testing.T) {
	root, quoteID := resliceRoot()
	leading := root.Children[0].ID
	trailing := root.Children[2].ID

	// Grow the end over part of the trailing paragraph.
	if err := root.ResliceQuote(quoteID, 8, 34+1+len("and sat")); err != nil {
		t.Fatalf("ResliceQuote() error = %v", err)
	}
	if got := root.FindNode(quoteID).PlainText(); got != "For God so loved the world and sat" {
		t.Errorf("quote text = %q", got)
	}
	if got := root.FindNode(trailing); got == nil || got.PlainText() != "down." {
		t.Errorf("truncated trailing paragraph = %+v", got)
	}

	// Grow the start over the whole leading paragraph.
	if err := root.ResliceQuote(quoteID, 0, 34+1+len("and sat")); err != nil {
		t.Fatalf("ResliceQuote() error = %v", err)
	}
	if got := root.FindNode(quoteID).PlainText(); got != "He said For God so loved the world and sat" {
		t.Errorf("quote text = %q", got)
	}
	if root.FindNode(leading) != nil {
		t.Error("wholly consumed paragraph survived")
	}
}

func TestResliceQuoteClipsAtNonParagraphNeighbor(t *testing.T) {
	quote := &Node{
		ID: "q1", Type: NodeQuoteBlock, Version: 1,
		Children: []*Node{NewText("For God so loved the world")},
		Metadata: &QuoteMetadata{},
	}
	heading := &Node{
		ID: "h1", Type: NodeHeading, Version: 1, Level: 2,
		Children: []*Node{NewText("Intro")},
	}
	root := &RootNode{ID: "doc", Version: 1, Children: []*Node{heading, quote}}

	// "Intro" spans [0,5); a start of 0 must clip to 6, leaving both
	// blocks untouched.
	if err := root.ResliceQuote(quote.ID, 0, 6+len("For God so loved the world")); err != nil {
		t.Fatalf("ResliceQuote() error = %v", err)
	}
	if got := root.FindNode("h1").PlainText(); got != "Intro" {
		t.Errorf("heading text = %q", got)
	}
	if got := root.FindNode("q1").PlainText(); got != "For God so loved the world" {
		t.Errorf("quote text = %q", got)
	}
}

func TestResliceQuoteRejectsInvertedAndEmpty(t *testing.T) {
	root, quoteID := resliceRoot()
	if err := root.ResliceQuote(quoteID, 20, 10); err == nil {
		t.Error("inverted boundary succeeded")
	}
	if err := root.ResliceQuote(quoteID, 12, 12); err == nil {
		t.Error("empty boundary succeeded")
	}
}

func TestResliceQuoteClearsInterjectionMetadata(t *testing.T) {
	root, quoteID := resliceRoot()
	if _, err := root.AddInterjection(quoteID, "loved", strings.Index("For God so loved the world", "loved")); err != nil {
		t.Fatalf("AddInterjection() error = %v", err)
	}
	if err := root.ResliceQuote(quoteID, 8, 24); err != nil {
		t.Fatalf("ResliceQuote() error = %v", err)
	}
	quote := root.FindNode(quoteID)
	if len(quote.Metadata.Interjections) != 0 {
		t.Errorf("interjections = %+v, want cleared after reslice", quote.Metadata.Interjections)
	}
	for _, child := range quote.Children {
		if child.Type == NodeInterjection {
			t.Error("interjection node survived reslice")
		}
	}
}
