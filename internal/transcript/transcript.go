// Package transcript holds the recognizer-side data model: word tokens, the
// coarse time-coded spans they are grouped into, and the per-source document
// that the segmentation pipeline reads.
package transcript

import "strings"

// WordToken is a single recognized word with its audio timing in seconds.
type WordToken struct {
	Text  string  `json:"word" validate:"required"`
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
	Conf  float64 `json:"conf,omitempty"`
}

// TimedSpan is a contiguous, time-coded run of transcript text.
type TimedSpan struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gtefield=Start"`
	Text  string  `json:"text" validate:"required"`
}

// Document is one audio source's transcript. It is read-only once loaded.
type Document struct {
	SourceID string      `json:"-"`
	Spans    []TimedSpan `json:"-"`
}

// FullText joins the spans' text with single spaces.
func (d *Document) FullText() string {
	parts := make([]string, 0, len(d.Spans))
	for _, s := range d.Spans {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
