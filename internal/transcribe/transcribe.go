// Package transcribe turns sermon recordings into initial documents.
// The speech-to-text engine itself sits behind Backend; ingestion maps
// its timestamped segments onto a fresh document tree.
package transcribe

import (
	"context"
	"strings"
	"time"

	"sermonscribe/api/internal/document"
)

// ParagraphGap is the silence between segments that starts a new
// paragraph during ingestion.
const ParagraphGap = 2 * time.Second

// Segment is one timestamped utterance from the engine.
type Segment struct {
	Start      time.Duration
	End        time.Duration
	Text       string
	Confidence float64
}

// Transcript is the engine output for one recording.
type Transcript struct {
	Language string
	Segments []Segment
}

// Backend is a speech-to-text engine.
type Backend interface {
	Transcribe(ctx context.Context, mediaPath string) (Transcript, error)
}

// IngestTranscript builds a document from a transcript. Consecutive
// segments join into one paragraph until the silence between them
// reaches ParagraphGap.
func IngestTranscript(title string, t Transcript) *document.RootNode {
	root := &document.RootNode{
		ID:    document.NewRootID(),
		Title: title,
	}

	var current []string
	var lastEnd time.Duration
	flush := func() {
		if len(current) == 0 {
			return
		}
		root.Children = append(root.Children, document.NewParagraph(
			document.NewText(strings.Join(current, " ")),
		))
		current = current[:0]
	}

	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if len(current) > 0 && seg.Start-lastEnd >= ParagraphGap {
			flush()
		}
		current = append(current, text)
		lastEnd = seg.End
	}
	flush()

	if len(root.Children) == 0 {
		root.Children = append(root.Children, document.NewParagraph(document.NewText("")))
	}
	return root
}
