package transcript

import "strings"

const (
	DefaultPauseThreshold = 0.8
	DefaultMaxSpanSec     = 10.0
)

// GroupOptions bounds how word tokens are merged into spans.
type GroupOptions struct {
	// PauseThreshold closes a span when the silence before the next word exceeds it.
	PauseThreshold float64
	// MaxSpan closes a span when extending it would make it longer than this.
	MaxSpan float64
}

// DefaultGroupOptions returns the recognizer grouping defaults.
func DefaultGroupOptions() GroupOptions {
	return GroupOptions{PauseThreshold: DefaultPauseThreshold, MaxSpan: DefaultMaxSpanSec}
}

// GroupWords merges chronologically ordered word tokens into time-coded
// spans. Every word appears in exactly one span, in input order.
func GroupWords(words []WordToken, opts GroupOptions) []TimedSpan {
	if len(words) == 0 {
		return nil
	}
	var (
		spans []TimedSpan
		start = words[0].Start
		text  = []string{words[0].Text}
	)
	closeSpan := func(end float64) {
		spans = append(spans, TimedSpan{Start: start, End: end, Text: strings.Join(text, " ")})
	}
	for i := 1; i < len(words); i++ {
		prev, cur := words[i-1], words[i]
		gap := cur.Start - prev.End
		duration := cur.End - start
		if (gap > opts.PauseThreshold || duration > opts.MaxSpan) && len(text) > 0 {
			closeSpan(prev.End)
			start = cur.Start
			text = text[:0]
		}
		text = append(text, cur.Text)
	}
	closeSpan(words[len(words)-1].End)
	return spans
}
