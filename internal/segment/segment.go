// Package segment splits flattened transcript text into topical segments.
//
// Two strategies are provided: Embedding compares adjacent sentence vectors
// and Lexical runs TextTiling over word blocks. Both return text only; timing
// is recovered later by the align package.
package segment

import (
	"context"
	"fmt"

	"podseg/internal/config"
	"podseg/internal/embed"
)

// Segmenter turns text into ordered segment texts.
type Segmenter interface {
	// Name is the configured mode, "embedding" or "lexical".
	Name() string
	Segment(ctx context.Context, text string) (Outcome, error)
}

// Outcome is the result of one segmentation run. A non-empty Fallback means
// the segmenter could not apply its algorithm as intended and degraded; the
// segments are still valid and cover the input.
type Outcome struct {
	Segments []string
	Fallback string
}

// Degraded reports whether a fallback path produced the segments.
func (o Outcome) Degraded() bool { return o.Fallback != "" }

// New builds the segmenter selected by cfg.Segmenter.Mode. provider is only
// used by the embedding mode and may be nil for lexical.
func New(cfg *config.Config, provider embed.Provider) (Segmenter, error) {
	switch cfg.Segmenter.Mode {
	case config.SegmenterEmbedding:
		if provider == nil {
			return nil, fmt.Errorf("segment: embedding mode needs an embedding provider")
		}
		splitter, err := NewPunktSplitter()
		if err != nil {
			return nil, err
		}
		return NewEmbedding(provider, splitter, EmbeddingOptions{
			Threshold:  cfg.Segmenter.SimilarityThreshold,
			ChunkWords: cfg.Segmenter.ChunkWords,
		}), nil
	case config.SegmenterLexical:
		return NewLexical(LexicalOptions{
			PseudoSentenceSize: cfg.Lexical.PseudoSentenceSize,
			BlockSize:          cfg.Lexical.BlockSize,
			SmoothingWidth:     cfg.Lexical.SmoothingWidth,
			MinParagraphChars:  cfg.Lexical.MinParagraphChars,
		}), nil
	default:
		return nil, fmt.Errorf("segment: unknown mode %q", cfg.Segmenter.Mode)
	}
}
