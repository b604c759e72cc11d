package semantic

import (
	"fmt"
	"time"

	"xinsight/internal/config"
)

// FromConfig returns the configured embedder, or nil when embeddings are disabled.
func FromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Provider {
	case config.EmbeddingHuggingFace:
		return NewHFEmbedder(cfg.BaseURL, cfg.Model, cfg.Token, timeout), nil
	case config.EmbeddingOpenAI:
		return NewOpenAIEmbedder(cfg.BaseURL, cfg.Model, cfg.Token, timeout), nil
	case config.EmbeddingNone, "":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}
