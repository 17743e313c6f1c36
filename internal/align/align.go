// Package align recovers start and end times for topic segments by matching
// their text against the time-coded spans they were built from.
//
// Matching is approximate. A segment whose edges cannot be located keeps a nil
// timestamp rather than borrowing one from an unrelated span.
package align

import (
	"strings"

	"podseg/internal/transcript"
)

// DefaultExcerptChars is how many characters of a segment's head and tail are
// compared against span text.
const DefaultExcerptChars = 20

// Segment is a topic segment with optional timing.
type Segment struct {
	ID        int      `json:"segment_id"`
	Text      string   `json:"text"`
	StartTime *float64 `json:"start_time"`
	EndTime   *float64 `json:"end_time"`
}

// Aligner fills segment timestamps from spans.
type Aligner struct {
	ExcerptChars int
}

// New returns an Aligner; excerptChars <= 0 uses DefaultExcerptChars.
func New(excerptChars int) *Aligner {
	if excerptChars <= 0 {
		excerptChars = DefaultExcerptChars
	}
	return &Aligner{ExcerptChars: excerptChars}
}

type normSpan struct {
	text       string
	start, end float64
}

// Align sets StartTime and EndTime on each segment in place.
func (a *Aligner) Align(segments []Segment, spans []transcript.TimedSpan) {
	norm := make([]normSpan, 0, len(spans))
	for _, sp := range spans {
		if t := normalize(sp.Text); t != "" {
			norm = append(norm, normSpan{text: t, start: sp.Start, end: sp.End})
		}
	}
	for i := range segments {
		segments[i].StartTime, segments[i].EndTime = a.locate(segments[i].Text, norm)
	}
}

func (a *Aligner) locate(text string, spans []normSpan) (*float64, *float64) {
	seg := normalize(text)
	if seg == "" {
		return nil, nil
	}
	head, tail, cut := excerpts(seg, a.ExcerptChars)

	first := -1
	var start, end *float64
	for i, sp := range spans {
		if matchesHead(sp.text, head, cut) || containsWords(seg, sp.text) {
			first = i
			start = ptr(sp.start)
			break
		}
	}
	for i := len(spans) - 1; i >= 0 && i >= first; i-- {
		sp := spans[i]
		if matchesTail(sp.text, tail, cut) || containsWords(seg, sp.text) {
			end = ptr(sp.end)
			break
		}
	}
	return start, end
}

// matchesHead reports whether span and head agree at their start on a word
// boundary, in either direction. A truncated head may end mid-word.
func matchesHead(span, head string, truncated bool) bool {
	return span == head ||
		strings.HasPrefix(head, span+" ") ||
		strings.HasPrefix(span, head+" ") ||
		truncated && strings.HasPrefix(span, head)
}

func matchesTail(span, tail string, truncated bool) bool {
	return span == tail ||
		strings.HasSuffix(tail, " "+span) ||
		strings.HasSuffix(span, " "+tail) ||
		truncated && strings.HasSuffix(span, tail)
}

func containsWords(seg, span string) bool {
	return strings.Contains(" "+seg+" ", " "+span+" ")
}

// excerpts returns the first and last n runes of s and whether they were cut
// from a longer text.
func excerpts(s string, n int) (head, tail string, truncated bool) {
	r := []rune(s)
	if len(r) <= n {
		return s, s, false
	}
	return strings.TrimSpace(string(r[:n])), strings.TrimSpace(string(r[len(r)-n:])), true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func ptr(f float64) *float64 { return &f }
