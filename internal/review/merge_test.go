package review

import (
	"reflect"
	"testing"
)

func TestPreviewMerge(t *testing.T) {
	paragraphs := []ParagraphSpan{
		{ID: "p2", Text: " Second paragraph. ", StartOffset: 17, EndOffset: 34},
		{ID: "p1", Text: "First paragraph. ", StartOffset: 0, EndOffset: 16},
	}

	preview := PreviewMerge(paragraphs, false)

	if preview.MergedText != "First paragraph. Second paragraph." {
		t.Errorf("MergedText = %q", preview.MergedText)
	}
	if got, want := preview.ParagraphIDs, []string{"p1", "p2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ParagraphIDs = %v, want %v", got, want)
	}
	if preview.StartOffset != 0 || preview.EndOffset != 34 {
		t.Errorf("range = [%d,%d], want [0,34]", preview.StartOffset, preview.EndOffset)
	}
	if !preview.RequiresConfirmation {
		t.Error("RequiresConfirmation = false, want true")
	}
}

func TestPreviewMergeAutoConfirm(t *testing.T) {
	preview := PreviewMerge([]ParagraphSpan{{ID: "p1"}, {ID: "p2"}}, true)
	if preview.RequiresConfirmation {
		t.Error("RequiresConfirmation = true with autoConfirm set")
	}
}

func TestPreviewMergeSkipsEmptyParagraphs(t *testing.T) {
	preview := PreviewMerge([]ParagraphSpan{
		{ID: "p1", Text: "One.", StartOffset: 0, EndOffset: 4},
		{ID: "p2", Text: "   ", StartOffset: 5, EndOffset: 8},
		{ID: "p3", Text: "Three.", StartOffset: 9, EndOffset: 15},
	}, false)
	if preview.MergedText != "One. Three." {
		t.Errorf("MergedText = %q", preview.MergedText)
	}
}

func TestOverlappingSpans(t *testing.T) {
	paragraphs := []ParagraphSpan{
		{ID: "p1", StartOffset: 0, EndOffset: 10},
		{ID: "p2", StartOffset: 11, EndOffset: 20},
		{ID: "p3", StartOffset: 21, EndOffset: 30},
	}
	cases := []struct {
		name       string
		start, end int
		want       []string
	}{
		{name: "inside one", start: 2, end: 8, want: []string{"p1"}},
		{name: "spans two", start: 5, end: 15, want: []string{"p1", "p2"}},
		{name: "spans all", start: 0, end: 30, want: []string{"p1", "p2", "p3"}},
		{name: "in the gap", start: 10, end: 11, want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, p := range overlappingSpans(paragraphs, tc.start, tc.end) {
				got = append(got, p.ID)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("overlappingSpans(%d,%d) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}
