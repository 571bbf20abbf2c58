package document

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Tree operations used by the quote review layer to reconcile committed
// actions back into the canonical AST. All operations mutate the given
// root in place; callers clone first and hand the result to the document
// context as one atomic update.

// SetQuoteVerified flips the userVerified flag on a quote block.
// Returns false when no quote with that id exists.
func (r *RootNode) SetQuoteVerified(quoteID string, verified bool) bool {
	n := r.FindNode(quoteID)
	if n == nil || n.Type != NodeQuoteBlock || n.Metadata == nil {
		return false
	}
	n.Metadata.UserVerified = verified
	n.Touch()
	return true
}

// SetQuoteReference replaces the reference on a quote block and clears
// the non-biblical flag, since a concrete reference supersedes it.
func (r *RootNode) SetQuoteReference(quoteID string, ref Reference, verseText, translation string) bool {
	n := r.FindNode(quoteID)
	if n == nil || n.Type != NodeQuoteBlock || n.Metadata == nil {
		return false
	}
	n.Metadata.Reference = ref
	n.Metadata.IsNonBiblical = false
	if verseText != "" {
		n.Metadata.Detection.VerseText = verseText
	}
	if translation != "" {
		n.Metadata.Detection.Translation = translation
	}
	n.Touch()
	return true
}

// SetQuoteNonBiblical marks a quote as intentionally non-scriptural.
func (r *RootNode) SetQuoteNonBiblical(quoteID string, nonBiblical bool) bool {
	n := r.FindNode(quoteID)
	if n == nil || n.Type != NodeQuoteBlock || n.Metadata == nil {
		return false
	}
	n.Metadata.IsNonBiblical = nonBiblical
	n.Touch()
	return true
}

// SetQuoteText replaces a quote's inline content with a single text node.
// Interjection children and their metadata entries are discarded, since
// their offsets no longer hold after a free-form text edit.
func (r *RootNode) SetQuoteText(quoteID, text string) bool {
	n := r.FindNode(quoteID)
	if n == nil || n.Type != NodeQuoteBlock || n.Metadata == nil {
		return false
	}
	n.Children = []*Node{NewText(text)}
	n.Metadata.Interjections = nil
	n.Touch()
	return true
}

// RemoveQuote converts a quote block back into a paragraph. The node and
// its id survive; interjection children collapse to plain text because the
// metadata that anchored them is gone.
func (r *RootNode) RemoveQuote(quoteID string) bool {
	n := r.FindNode(quoteID)
	if n == nil || n.Type != NodeQuoteBlock {
		return false
	}
	for _, child := range n.Children {
		if child.Type == NodeInterjection {
			child.Type = NodeText
			child.MetadataID = ""
			child.Touch()
		}
	}
	n.Type = NodeParagraph
	n.Metadata = nil
	n.Touch()
	return true
}

// AddInterjection splits the quote's text at [offset, offset+len(text))
// into a confirmed interjection node, recording it in the quote metadata.
// The offset is relative to the quote's plain text. Returns the metadata
// id, or an error when the span does not land inside a single text child.
func (r *RootNode) AddInterjection(quoteID, text string, offset int) (string, error) {
	n := r.FindNode(quoteID)
	if n == nil || n.Type != NodeQuoteBlock || n.Metadata == nil {
		return "", fmt.Errorf("quote %s not found", quoteID)
	}
	end := offset + len(text)
	pos := 0
	for i, child := range n.Children {
		childEnd := pos + len(child.Content)
		if child.Type == NodeText && offset >= pos && end <= childEnd {
			local := offset - pos
			if child.Content[local:local+len(text)] != text {
				return "", fmt.Errorf("interjection text %q does not match quote content at offset %d", text, offset)
			}
			metaID := NewNodeID()
			interjection := &Node{
				ID:         NewNodeID(),
				Type:       NodeInterjection,
				Version:    1,
				UpdatedAt:  time.Now(),
				Content:    text,
				MetadataID: metaID,
			}
			replacement := make([]*Node, 0, 3)
			if before := child.Content[:local]; before != "" {
				replacement = append(replacement, NewText(before, child.Marks...))
			}
			replacement = append(replacement, interjection)
			if after := child.Content[local+len(text):]; after != "" {
				replacement = append(replacement, NewText(after, child.Marks...))
			}
			n.Children = append(n.Children[:i], append(replacement, n.Children[i+1:]...)...)
			n.Metadata.Interjections = append(n.Metadata.Interjections, InterjectionMeta{
				ID:        metaID,
				Text:      text,
				Confirmed: true,
			})
			n.Touch()
			return metaID, nil
		}
		pos = childEnd
	}
	return "", fmt.Errorf("offset %d is outside quote %s text", offset, quoteID)
}

// MergeParagraphs collapses the given paragraphs into the earliest one in
// document order. Surviving children are the trimmed texts joined by a
// single space; the other paragraph nodes are destroyed. Returns the
// survivor's id, or an error when fewer than two of the ids resolve to
// top-level paragraphs.
func (r *RootNode) MergeParagraphs(ids []string) (string, error) {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	var indexes []int
	for i, child := range r.Children {
		if wanted[child.ID] && child.Type == NodeParagraph {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) < 2 {
		return "", fmt.Errorf("merge needs at least two paragraphs, found %d", len(indexes))
	}
	sort.Ints(indexes)

	var parts []string
	for _, i := range indexes {
		if text := strings.TrimSpace(r.Children[i].PlainText()); text != "" {
			parts = append(parts, text)
		}
	}
	survivor := r.Children[indexes[0]]
	survivor.Children = []*Node{NewText(strings.Join(parts, " "))}
	survivor.Touch()

	kept := make([]*Node, 0, len(r.Children)-len(indexes)+1)
	for _, child := range r.Children {
		if wanted[child.ID] && child.ID != survivor.ID && child.Type == NodeParagraph {
			continue
		}
		kept = append(kept, child)
	}
	r.Children = kept
	r.Version++
	r.UpdatedAt = time.Now()
	return survivor.ID, nil
}

// CreateQuoteFromSelection carves [startOffset, endOffset) of one
// paragraph's plain text into a new quote block. The paragraph keeps its
// id on whichever remainder survives.
func (r *RootNode) CreateQuoteFromSelection(paragraphID string, startOffset, endOffset int, meta QuoteMetadata) (string, error) {
	return r.CreateQuoteFromSpan([]string{paragraphID}, startOffset, endOffset, meta)
}

// CreateQuoteFromSpan carves a selection spanning one or more adjacent
// top-level paragraphs into a new quote block. startOffset is local to the
// first paragraph's plain text, endOffset to the last; the pieces between
// them join with a single space, the way merged paragraphs do. Paragraphs
// the selection swallows whole are destroyed. A leading or trailing
// remainder keeps its paragraph's id, so references to the split
// paragraphs stay resolvable. Returns the new quote node's id.
func (r *RootNode) CreateQuoteFromSpan(paragraphIDs []string, startOffset, endOffset int, meta QuoteMetadata) (string, error) {
	if len(paragraphIDs) == 0 {
		return "", fmt.Errorf("selection covers no paragraph")
	}
	indexes := make([]int, 0, len(paragraphIDs))
	for _, id := range paragraphIDs {
		found := -1
		for i, child := range r.Children {
			if child.ID == id && child.Type == NodeParagraph {
				found = i
				break
			}
		}
		if found < 0 {
			return "", fmt.Errorf("paragraph %s not found", id)
		}
		indexes = append(indexes, found)
	}
	sort.Ints(indexes)
	for i := 1; i < len(indexes); i++ {
		if indexes[i] != indexes[i-1]+1 {
			return "", fmt.Errorf("selection paragraphs are not adjacent")
		}
	}

	first := r.Children[indexes[0]]
	last := r.Children[indexes[len(indexes)-1]]
	firstText, lastText := first.PlainText(), last.PlainText()
	if startOffset < 0 || startOffset > len(firstText) {
		return "", fmt.Errorf("selection start %d is outside paragraph of length %d", startOffset, len(firstText))
	}
	if endOffset < 0 || endOffset > len(lastText) {
		return "", fmt.Errorf("selection end %d is outside paragraph of length %d", endOffset, len(lastText))
	}
	if first == last && startOffset >= endOffset {
		return "", fmt.Errorf("selection [%d,%d) is empty", startOffset, endOffset)
	}

	var parts []string
	if first == last {
		parts = appendTrimmed(parts, firstText[startOffset:endOffset])
	} else {
		parts = appendTrimmed(parts, firstText[startOffset:])
		for _, i := range indexes[1 : len(indexes)-1] {
			parts = appendTrimmed(parts, r.Children[i].PlainText())
		}
		parts = appendTrimmed(parts, lastText[:endOffset])
	}
	quoteText := strings.Join(parts, " ")
	if quoteText == "" {
		return "", fmt.Errorf("selection [%d,%d) is empty", startOffset, endOffset)
	}

	quote := &Node{
		ID:        NewNodeID(),
		Type:      NodeQuoteBlock,
		Version:   1,
		UpdatedAt: time.Now(),
		Children:  []*Node{NewText(quoteText)},
		Metadata:  &meta,
	}

	before := strings.TrimSpace(firstText[:startOffset])
	after := strings.TrimSpace(lastText[endOffset:])
	blocks := make([]*Node, 0, 3)
	if before != "" {
		first.Children = []*Node{NewText(before)}
		first.Touch()
		blocks = append(blocks, first)
	}
	blocks = append(blocks, quote)
	if after != "" {
		if last != first || before == "" {
			last.Children = []*Node{NewText(after)}
			last.Touch()
			blocks = append(blocks, last)
		} else {
			blocks = append(blocks, NewParagraph(NewText(after)))
		}
	}

	tail := indexes[len(indexes)-1] + 1
	r.Children = append(r.Children[:indexes[0]], append(blocks, r.Children[tail:]...)...)
	r.Version++
	r.UpdatedAt = time.Now()
	return quote.ID, nil
}

// blockSpan locates a top-level block in the document's running
// plain-text offsets, blocks separated by one newline.
type blockSpan struct {
	node       *Node
	start, end int
}

func (r *RootNode) blockSpans() []blockSpan {
	spans := make([]blockSpan, len(r.Children))
	offset := 0
	for i, child := range r.Children {
		if i > 0 {
			offset++
		}
		text := child.PlainText()
		spans[i] = blockSpan{node: child, start: offset, end: offset + len(text)}
		offset += len(text)
	}
	return spans
}

// ResliceQuote moves a quote block's extent to [start, end) in document
// plain-text offsets. Text leaving the quote becomes a paragraph sibling;
// text entering it is consumed from adjacent paragraphs, destroying any
// paragraph swallowed whole and truncating a partially consumed one in
// place, id intact. The extent clips at the nearest non-paragraph
// neighbor. Interjection metadata is discarded: its offsets no longer
// hold after a reslice.
func (r *RootNode) ResliceQuote(quoteID string, start, end int) error {
	if start > end {
		return fmt.Errorf("boundary [%d,%d) is inverted", start, end)
	}
	spans := r.blockSpans()
	qi := -1
	for i, s := range spans {
		if s.node.ID == quoteID && s.node.Type == NodeQuoteBlock {
			qi = i
			break
		}
	}
	if qi < 0 {
		return fmt.Errorf("quote %s not found", quoteID)
	}
	q := spans[qi]

	lo := 0
	for i := qi - 1; i >= 0; i-- {
		if spans[i].node.Type != NodeParagraph {
			lo = spans[i].end + 1
			break
		}
	}
	hi := spans[len(spans)-1].end
	for i := qi + 1; i < len(spans); i++ {
		if spans[i].node.Type != NodeParagraph {
			hi = spans[i].start - 1
			break
		}
	}
	start = max(start, lo)
	end = min(end, hi)
	if start >= end {
		return fmt.Errorf("boundary [%d,%d) leaves the quote empty", start, end)
	}

	// The paragraphs the new extent reaches into.
	firstIdx, lastIdx := qi, qi
	for i := qi - 1; i >= 0 && start < spans[i].end; i-- {
		firstIdx = i
		if start > spans[i].start {
			break
		}
	}
	for i := qi + 1; i < len(spans) && end > spans[i].start; i++ {
		lastIdx = i
		if end < spans[i].end {
			break
		}
	}

	quoteText := q.node.PlainText()
	var blocks []*Node
	var parts []string

	if firstIdx < qi {
		text := spans[firstIdx].node.PlainText()
		if start > spans[firstIdx].start {
			if head := strings.TrimSpace(text[:start-spans[firstIdx].start]); head != "" {
				spans[firstIdx].node.Children = []*Node{NewText(head)}
				spans[firstIdx].node.Touch()
				blocks = append(blocks, spans[firstIdx].node)
			}
			parts = appendTrimmed(parts, text[start-spans[firstIdx].start:])
		} else {
			parts = appendTrimmed(parts, text)
		}
		for i := firstIdx + 1; i < qi; i++ {
			parts = appendTrimmed(parts, spans[i].node.PlainText())
		}
	}
	if start > q.start {
		// Expelled quote head becomes a paragraph before the quote.
		if head := strings.TrimSpace(quoteText[:start-q.start]); head != "" {
			blocks = append(blocks, NewParagraph(NewText(head)))
		}
	}
	if ks, ke := max(start, q.start)-q.start, min(end, q.end)-q.start; ks < ke {
		parts = appendTrimmed(parts, quoteText[ks:ke])
	}

	var tailBlocks []*Node
	if end < q.end {
		if tail := strings.TrimSpace(quoteText[end-q.start:]); tail != "" {
			tailBlocks = append(tailBlocks, NewParagraph(NewText(tail)))
		}
	}
	if lastIdx > qi {
		for i := qi + 1; i < lastIdx; i++ {
			parts = appendTrimmed(parts, spans[i].node.PlainText())
		}
		text := spans[lastIdx].node.PlainText()
		if end < spans[lastIdx].end {
			parts = appendTrimmed(parts, text[:end-spans[lastIdx].start])
			if tail := strings.TrimSpace(text[end-spans[lastIdx].start:]); tail != "" {
				spans[lastIdx].node.Children = []*Node{NewText(tail)}
				spans[lastIdx].node.Touch()
				tailBlocks = append(tailBlocks, spans[lastIdx].node)
			}
		} else {
			parts = appendTrimmed(parts, text)
		}
	}

	newText := strings.Join(parts, " ")
	if newText == "" {
		return fmt.Errorf("boundary [%d,%d) leaves the quote empty", start, end)
	}
	q.node.Children = []*Node{NewText(newText)}
	if q.node.Metadata != nil {
		q.node.Metadata.Interjections = nil
	}
	q.node.Touch()

	rebuilt := append(blocks, q.node)
	rebuilt = append(rebuilt, tailBlocks...)
	r.Children = append(r.Children[:firstIdx], append(rebuilt, r.Children[lastIdx+1:]...)...)
	r.Version++
	r.UpdatedAt = time.Now()
	return nil
}

func appendTrimmed(parts []string, text string) []string {
	if t := strings.TrimSpace(text); t != "" {
		parts = append(parts, t)
	}
	return parts
}
