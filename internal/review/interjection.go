package review

import (
	"sort"
	"strings"
	"unicode"
)

// Candidate is one detected speaker-response span, confidence-scored with
// its source pattern and surrounding context. Candidates are never
// auto-confirmed: confirmation is always an explicit user action, even at
// maximum confidence.
type Candidate struct {
	Text        string
	StartOffset int
	EndOffset   int
	Confidence  float64
	Pattern     string
	Context     string
}

// interjectionPatterns maps response phrases to base confidence. Longer
// phrases are matched first so "praise the lord" wins over "praise".
var interjectionPatterns = []struct {
	phrase     string
	confidence float64
}{
	{"thank you jesus", 0.85},
	{"praise the lord", 0.85},
	{"praise god", 0.8},
	{"yes lord", 0.75},
	{"hallelujah", 0.9},
	{"amen", 0.9},
	{"glory", 0.6},
}

const contextRadius = 20

// DetectInterjections scans text for response-phrase candidates, returned
// in ascending offset order. Matches must fall on word boundaries.
func DetectInterjections(text string) []Candidate {
	lower := strings.ToLower(text)
	var out []Candidate
	claimed := make([]bool, len(text))

	for _, pattern := range interjectionPatterns {
		from := 0
		for {
			i := strings.Index(lower[from:], pattern.phrase)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(pattern.phrase)
			from = end
			if !wordBoundary(lower, start, end) || anyClaimed(claimed, start, end) {
				continue
			}
			for j := start; j < end; j++ {
				claimed[j] = true
			}
			out = append(out, Candidate{
				Text:        text[start:end],
				StartOffset: start,
				EndOffset:   end,
				Confidence:  pattern.confidence,
				Pattern:     pattern.phrase,
				Context:     contextAround(text, start, end),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartOffset < out[j].StartOffset })
	return out
}

// FilterByConfidence keeps candidates at or above the threshold. This
// gates display only; it never mutates committed content.
func FilterByConfidence(candidates []Candidate, threshold float64) []Candidate {
	var out []Candidate
	for _, c := range candidates {
		if c.Confidence >= threshold {
			out = append(out, c)
		}
	}
	return out
}

func wordBoundary(text string, start, end int) bool {
	if start > 0 && isWordRune(rune(text[start-1])) {
		return false
	}
	if end < len(text) && isWordRune(rune(text[end])) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func anyClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

func contextAround(text string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}
