package review

import (
	"sermonscribe/api/internal/document"
)

// ProjectQuotes walks the document's top-level blocks with a running
// plain-text offset (blocks separated by one newline, matching
// document.PlainText) and returns the review items for every quote
// block, in document order.
func ProjectQuotes(root *document.RootNode) []QuoteReviewItem {
	if root == nil {
		return nil
	}
	var out []QuoteReviewItem
	offset := 0
	lastParagraphID := ""
	for i, block := range root.Children {
		if i > 0 {
			offset++ // newline separator
		}
		text := block.PlainText()
		if block.Type == document.NodeQuoteBlock {
			item := QuoteReviewItem{
				ID:          block.ID,
				Text:        text,
				StartOffset: offset,
				EndOffset:   offset + len(text),
				ParagraphID: lastParagraphID,
			}
			if meta := block.Metadata; meta != nil {
				item.IsReviewed = meta.UserVerified
				item.IsNonBiblical = meta.IsNonBiblical
				if meta.Reference.Book != "" || meta.Reference.NormalizedReference != "" {
					ref := meta.Reference
					item.Reference = &ref
				}
				for _, ij := range meta.Interjections {
					if ij.Confirmed {
						item.Interjections = append(item.Interjections, ij.Text)
					}
				}
			}
			out = append(out, item)
		}
		if block.Type == document.NodeParagraph {
			lastParagraphID = block.ID
		}
		offset += len(text)
	}
	return out
}

// ProjectParagraphs returns the paragraph spans of the document under the
// same running-offset scheme, for boundary overlap checks.
func ProjectParagraphs(root *document.RootNode) []ParagraphSpan {
	if root == nil {
		return nil
	}
	var out []ParagraphSpan
	offset := 0
	for i, block := range root.Children {
		if i > 0 {
			offset++
		}
		text := block.PlainText()
		if block.Type == document.NodeParagraph {
			out = append(out, ParagraphSpan{
				ID:          block.ID,
				Text:        text,
				StartOffset: offset,
				EndOffset:   offset + len(text),
			})
		}
		offset += len(text)
	}
	return out
}
