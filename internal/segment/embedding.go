package segment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"podseg/internal/config"
	"podseg/internal/embed"
)

// EmbeddingOptions tunes the embedding segmenter.
type EmbeddingOptions struct {
	// Threshold is τ: adjacent sentences with cosine similarity strictly
	// below it start a new segment.
	Threshold float64
	// ChunkWords is the pseudo-sentence size used when the text has no
	// usable sentence boundaries.
	ChunkWords int
}

// Embedding splits text where adjacent-sentence similarity drops below τ.
type Embedding struct {
	provider embed.Provider
	splitter SentenceSplitter
	opts     EmbeddingOptions
}

// NewEmbedding wires the embedding segmenter to its two collaborators.
func NewEmbedding(provider embed.Provider, splitter SentenceSplitter, opts EmbeddingOptions) *Embedding {
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = 20
	}
	return &Embedding{provider: provider, splitter: splitter, opts: opts}
}

// Name implements Segmenter.
func (e *Embedding) Name() string { return config.SegmenterEmbedding }

// Sentences returns the pseudo-sentence sequence the segmenter works on, and
// the fallback reason when unpunctuated text was chunked.
func (e *Embedding) Sentences(text string) ([]string, string) {
	sents := e.splitter.Split(text)
	words := strings.Fields(text)
	if len(sents) < 2 && len(words) > e.opts.ChunkWords {
		reason := fmt.Sprintf("%d sentence(s) over %d words; chunked into %d-word pieces", len(sents), len(words), e.opts.ChunkWords)
		return chunkWords(words, e.opts.ChunkWords), reason
	}
	return sents, ""
}

// Segment implements Segmenter. Embedding failures are returned as errors.
func (e *Embedding) Segment(ctx context.Context, text string) (Outcome, error) {
	sents, reason := e.Sentences(text)
	switch len(sents) {
	case 0:
		return Outcome{Fallback: reason}, nil
	case 1:
		return Outcome{Segments: sents, Fallback: reason}, nil
	}

	vecs, err := e.provider.EmbedBatch(ctx, sents)
	if err != nil {
		return Outcome{}, fmt.Errorf("embed %d sentences: %w", len(sents), err)
	}
	if len(vecs) != len(sents) {
		return Outcome{}, fmt.Errorf("embed: got %d vectors for %d sentences", len(vecs), len(sents))
	}
	for i, v := range vecs {
		if len(v) == 0 || len(v) != len(vecs[0]) {
			return Outcome{}, fmt.Errorf("embed: vector %d has dimension %d, want %d", i, len(v), len(vecs[0]))
		}
	}

	var segments []string
	current := []string{sents[0]}
	for i := 1; i < len(sents); i++ {
		if CosineSimilarity(vecs[i], vecs[i-1]) < e.opts.Threshold {
			segments = append(segments, strings.Join(current, " "))
			current = nil
		}
		current = append(current, sents[i])
	}
	segments = append(segments, strings.Join(current, " "))
	return Outcome{Segments: segments, Fallback: reason}, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, computed
// in float64. Mismatched lengths or a zero vector yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
