package semantic

import (
	"testing"

	"xinsight/internal/config"
)

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Embedding
	e, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("hf: %v", err)
	}
	hf, ok := e.(*HFEmbedder)
	if !ok || hf.Model != "dmis-lab/biobert-v1.1" {
		t.Fatalf("unexpected embedder: %#v", e)
	}
	cfg.Provider = config.EmbeddingOpenAI
	if e, err := FromConfig(cfg); err != nil {
		t.Fatalf("openai: %v", err)
	} else if _, ok := e.(*OpenAIEmbedder); !ok {
		t.Fatalf("openai: got %T", e)
	}
	cfg.Provider = config.EmbeddingNone
	if e, err := FromConfig(cfg); err != nil || e != nil {
		t.Fatalf("none: %v %v", e, err)
	}
	cfg.Provider = "word2vec"
	if _, err := FromConfig(cfg); err == nil {
		t.Fatalf("expected error")
	}
}
