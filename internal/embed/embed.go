// Package embed defines the sentence-embedding collaborator used by the
// embedding segmenter, with Ollama and OpenAI backends.
//
// Providers are constructed once per process and are safe for concurrent use;
// they hold no state that changes after construction.
package embed

import (
	"context"
	"fmt"
	"time"

	"podseg/internal/config"
)

// Provider maps an ordered list of texts to one vector per text.
type Provider interface {
	// EmbedBatch returns len(texts) vectors in input order, or an error.
	// Partial results are never returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelID names the model producing the vectors.
	ModelID() string
}

// New builds the provider selected by cfg.Embedding.
func New(cfg *config.Config) (Provider, error) {
	timeout := time.Duration(cfg.Embedding.TimeoutSec * float64(time.Second))
	switch cfg.Embedding.Provider {
	case config.EmbedProviderOllama:
		return NewOllama(cfg.Embedding.BaseURL, cfg.Embedding.Model, timeout)
	case config.EmbedProviderOpenAI:
		return NewOpenAI(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, timeout)
	default:
		return nil, fmt.Errorf("embed: unknown provider %q", cfg.Embedding.Provider)
	}
}

func checkCount(backend string, want, got int) error {
	if want != got {
		return fmt.Errorf("%s embeddings: expected %d embeddings, got %d", backend, want, got)
	}
	return nil
}
