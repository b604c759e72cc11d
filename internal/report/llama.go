//go:build llama

package report

import (
	"context"
	"errors"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with real llama support.
const llamaBuilt = true

// LlamaReporter runs a GGUF model in-process through llama.cpp.
type LlamaReporter struct {
	mu          sync.Mutex
	model       *llama.LLama
	threads     int
	maxTokens   int
	temperature float32
}

// NewLlamaReporter loads the model at modelPath.
func NewLlamaReporter(modelPath string, ctxSize, threads, maxTokens int, temperature float32) (*LlamaReporter, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(modelPath, llama.SetContext(ctxSize))
	if err != nil {
		return nil, err
	}
	return &LlamaReporter{model: m, threads: threads, maxTokens: maxTokens, temperature: temperature}, nil
}

func (r *LlamaReporter) Generate(ctx context.Context, req Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// stop generation once the request is gone
	r.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	text, err := r.model.Predict(Prompt(req),
		llama.SetTokens(max(1, r.maxTokens)),
		llama.SetThreads(max(1, r.threads)),
		llama.SetTemperature(zf(r.temperature, llama.DefaultOptions.Temperature)),
		llama.SetStopWords("### User:"),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (r *LlamaReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
