package review

import (
	"sort"
	"strings"
)

// MergePreview is the negotiated outcome of collapsing the paragraphs a
// boundary change spans. Confirming invokes the caller's merge callback;
// cancelling clears the pending slot with no side effects.
type MergePreview struct {
	ParagraphIDs         []string
	MergedText           string
	StartOffset          int
	EndOffset            int
	RequiresConfirmation bool

	// A merge raised by a boundary commit suspends the whole commit:
	// QuoteID names the quote and [QuoteStart, QuoteEnd) the boundary
	// that applies on confirmation. Empty for plain paragraph merges.
	QuoteID    string
	QuoteStart int
	QuoteEnd   int
}

// PreviewMerge computes the merged text as the trimmed paragraph texts
// joined by a single space in ascending start-offset order, and the union
// offset range. Merging requires explicit confirmation unless autoConfirm
// is set.
func PreviewMerge(paragraphs []ParagraphSpan, autoConfirm bool) MergePreview {
	ordered := make([]ParagraphSpan, len(paragraphs))
	copy(ordered, paragraphs)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartOffset < ordered[j].StartOffset
	})

	preview := MergePreview{RequiresConfirmation: !autoConfirm}
	var parts []string
	for i, p := range ordered {
		preview.ParagraphIDs = append(preview.ParagraphIDs, p.ID)
		if text := strings.TrimSpace(p.Text); text != "" {
			parts = append(parts, text)
		}
		if i == 0 || p.StartOffset < preview.StartOffset {
			preview.StartOffset = p.StartOffset
		}
		if p.EndOffset > preview.EndOffset {
			preview.EndOffset = p.EndOffset
		}
	}
	preview.MergedText = strings.Join(parts, " ")
	return preview
}

// overlappingSpans returns the paragraphs a candidate [start,end) range
// touches, in ascending offset order.
func overlappingSpans(paragraphs []ParagraphSpan, start, end int) []ParagraphSpan {
	var out []ParagraphSpan
	for _, p := range paragraphs {
		if start < p.EndOffset && end > p.StartOffset {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartOffset < out[j].StartOffset })
	return out
}
