package segment

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"podseg/internal/config"
)

// LexicalOptions are the TextTiling parameters.
type LexicalOptions struct {
	PseudoSentenceSize int // w: words per pseudo-sentence
	BlockSize          int // k: pseudo-sentences per comparison block
	SmoothingWidth     int
	MinParagraphChars  int
}

// Lexical is a TextTiling segmenter: it scores lexical cohesion across gaps
// between pseudo-sentences and cuts at the deepest valleys, snapped to the
// nearest sentence break.
type Lexical struct {
	opts LexicalOptions
}

// NewLexical returns a Lexical segmenter; zero options take the defaults.
func NewLexical(opts LexicalOptions) *Lexical {
	if opts.PseudoSentenceSize <= 0 {
		opts.PseudoSentenceSize = 20
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = 10
	}
	if opts.SmoothingWidth < 0 {
		opts.SmoothingWidth = 2
	}
	if opts.MinParagraphChars <= 0 {
		opts.MinParagraphChars = 100
	}
	return &Lexical{opts: opts}
}

// Name implements Segmenter.
func (l *Lexical) Name() string { return config.SegmenterLexical }

var (
	sentenceEndRE = regexp.MustCompile(`([.!?])\s+`)
	paragraphRE   = regexp.MustCompile(`[ \t\r\f\v]*\n[ \t\r\f\v]*\n[ \t\r\f\v]*`)
)

type lexWord struct {
	norm   string
	offset int
}

// Segment implements Segmenter. It never returns an error; text the
// algorithm cannot handle comes back as one segment with a Fallback reason.
func (l *Lexical) Segment(_ context.Context, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, nil
	}
	prepared := sentenceEndRE.ReplaceAllString(text, "$1\n\n")
	whole := func(reason string) (Outcome, error) {
		return Outcome{Segments: []string{collapse(prepared)}, Fallback: reason}, nil
	}

	breaks := l.paragraphBreaks(prepared)
	if len(breaks) < 2 {
		return whole("no block boundaries found (text too short)")
	}

	words := tileWords(prepared)
	w := l.opts.PseudoSentenceSize
	var seqs []map[string]int
	for i := 0; i < len(words); i += w {
		counts := map[string]int{}
		for _, wd := range words[i:min(i+w, len(words))] {
			if !stopwords[wd.norm] {
				counts[wd.norm]++
			}
		}
		seqs = append(seqs, counts)
	}
	window := l.opts.SmoothingWidth + 1
	if numGaps := len(seqs) - 1; numGaps < 3 || numGaps < window {
		return whole(fmt.Sprintf("only %d pseudo-sentences, too few to compare", len(seqs)))
	}

	scores := smooth(blockScores(seqs, l.opts.BlockSize), window)
	boundaries := pickBoundaries(depthScores(scores))

	var cuts []int
	for g, isBoundary := range boundaries {
		if !isBoundary {
			continue
		}
		wi := (g + 1) * w
		if wi >= len(words) {
			continue
		}
		br := nearestBreak(breaks, words[wi].offset)
		if br == 0 {
			continue
		}
		if len(cuts) == 0 || cuts[len(cuts)-1] != br {
			cuts = append(cuts, br)
		}
	}
	sort.Ints(cuts)

	var segments []string
	prev := 0
	for _, c := range cuts {
		if c <= prev {
			continue
		}
		if s := collapse(prepared[prev:c]); s != "" {
			segments = append(segments, s)
		}
		prev = c
	}
	if s := collapse(prepared[prev:]); s != "" {
		segments = append(segments, s)
	}
	return Outcome{Segments: segments}, nil
}

// paragraphBreaks returns 0 followed by the offsets of blank-line markers that
// are at least MinParagraphChars after the previous accepted one.
func (l *Lexical) paragraphBreaks(text string) []int {
	breaks := []int{0}
	last := 0
	for _, m := range paragraphRE.FindAllStringIndex(text, -1) {
		if m[0]-last < l.opts.MinParagraphChars {
			continue
		}
		breaks = append(breaks, m[0])
		last = m[0]
	}
	return breaks
}

func tileWords(text string) []lexWord {
	var out []lexWord
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		if n := normalizeWord(text[start:end]); n != "" {
			out = append(out, lexWord{norm: n, offset: start})
		}
		start = -1
	}
	for i, r := range text {
		if unicode.IsSpace(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(text))
	return out
}

func normalizeWord(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// blockScores compares the k pseudo-sentences on each side of every gap
// (fewer near the edges) by the cosine of their word-frequency vectors.
func blockScores(seqs []map[string]int, k int) []float64 {
	numGaps := len(seqs) - 1
	scores := make([]float64, numGaps)
	for gap := 0; gap < numGaps; gap++ {
		size := k
		switch {
		case gap < k-1:
			size = gap + 1
		case gap > numGaps-k:
			size = numGaps - gap
		}
		b1 := blockCounts(seqs[gap-size+1 : gap+1])
		// near both edges at once the right block runs out before size
		b2 := blockCounts(seqs[gap+1 : min(gap+size+1, len(seqs))])

		var dot, n1, n2 float64
		for tok, c := range b1 {
			dot += float64(c * b2[tok])
			n1 += float64(c * c)
		}
		for _, c := range b2 {
			n2 += float64(c * c)
		}
		if n1 > 0 && n2 > 0 {
			scores[gap] = dot / math.Sqrt(n1*n2)
		}
	}
	return scores
}

func blockCounts(block []map[string]int) map[string]int {
	out := map[string]int{}
	for _, seq := range block {
		for tok, c := range seq {
			out[tok] += c
		}
	}
	return out
}

// smooth applies a centred moving average of the given width, extending the
// series past each end by point reflection.
func smooth(x []float64, width int) []float64 {
	out := make([]float64, len(x))
	if width < 3 {
		copy(out, x)
		return out
	}
	half := width / 2
	last := len(x) - 1
	at := func(i int) float64 {
		switch {
		case i < 0:
			return 2*x[0] - x[min(-i, last)]
		case i > last:
			return 2*x[last] - x[max(2*last-i, 0)]
		default:
			return x[i]
		}
	}
	for i := range x {
		var sum float64
		for j := i - half; j <= i+half; j++ {
			sum += at(j)
		}
		out[i] = sum / float64(2*half+1)
	}
	return out
}

// depthScores measures how far each gap sits below the peaks on either side.
// Gaps within clip of either end score zero.
func depthScores(scores []float64) []float64 {
	depth := make([]float64, len(scores))
	clip := min(max(len(scores)/10, 2), 5)
	for i := clip; i < len(scores)-clip; i++ {
		lpeak := scores[i]
		for j := i; j >= 0 && scores[j] >= lpeak; j-- {
			lpeak = scores[j]
		}
		rpeak := scores[i]
		for j := i; j < len(scores) && scores[j] >= rpeak; j++ {
			rpeak = scores[j]
		}
		depth[i] = lpeak + rpeak - 2*scores[i]
	}
	return depth
}

// pickBoundaries keeps gaps deeper than mean - stddev/2, deepest first, and
// drops any within 4 gaps of one already kept.
func pickBoundaries(depth []float64) []bool {
	var sum, sq float64
	for _, d := range depth {
		sum += d
	}
	mean := sum / float64(len(depth))
	for _, d := range depth {
		sq += (d - mean) * (d - mean)
	}
	cutoff := mean - math.Sqrt(sq/float64(len(depth)))/2

	var cand []int
	for i, d := range depth {
		if d > cutoff {
			cand = append(cand, i)
		}
	}
	sort.Slice(cand, func(a, b int) bool {
		if depth[cand[a]] != depth[cand[b]] {
			return depth[cand[a]] > depth[cand[b]]
		}
		return cand[a] > cand[b]
	})

	out := make([]bool, len(depth))
	for _, i := range cand {
		out[i] = true
		for _, j := range cand {
			if j != i && out[j] && abs(i-j) < 4 {
				out[i] = false
				break
			}
		}
	}
	return out
}

func nearestBreak(breaks []int, offset int) int {
	best, bestDist := 0, math.MaxInt
	for _, br := range breaks {
		if d := abs(br - offset); d < bestDist {
			best, bestDist = br, d
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
