// Package semantic cross-checks classifier findings against a small medical
// knowledge base using sentence embeddings.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"xinsight/internal/common/errs"
)

// hiddenSize is the BERT-base embedding width used to un-flatten token vectors.
const hiddenSize = 768

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// HFEmbedder calls the Hugging Face feature-extraction pipeline.
type HFEmbedder struct {
	BaseURL string
	Model   string
	Token   string
	Client  *http.Client
}

// NewHFEmbedder returns an embedder for model behind baseURL.
func NewHFEmbedder(baseURL, model, token string, timeout time.Duration) *HFEmbedder {
	return &HFEmbedder{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (e *HFEmbedder) endpoint() string {
	return e.BaseURL + "/models/" + e.Model + "/pipeline/feature-extraction"
}

// Embed requests token features for text and mean-pools them.
func (e *HFEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, _ := json.Marshal(map[string]any{"inputs": text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Token != "" {
		req.Header.Set("Authorization", "Bearer "+e.Token)
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, errs.ErrDependencyUnavailable(fmt.Sprintf("feature extraction: %v", err))
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read features: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return nil, fmt.Errorf("feature extraction: status %d: %s", resp.StatusCode, msg)
	}
	return MeanPool(raw)
}

// MeanPool reduces a feature-extraction response to one vector:
// [batch][tokens][dim] averages the tokens of the first item, [tokens][dim]
// averages the tokens, and a flat array whose length is a multiple of 768 is
// treated as 768-wide token rows. Anything else is returned flattened.
func MeanPool(raw []byte) ([]float64, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parse features: %w", err)
	}
	depth := 0
	for cur := v; ; depth++ {
		arr, ok := cur.([]any)
		if !ok {
			break
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("parse features: empty array")
		}
		cur = arr[0]
	}
	switch depth {
	case 3:
		rows, err := matrix(v.([]any)[0])
		if err != nil {
			return nil, err
		}
		return meanRows(rows), nil
	case 2:
		rows, err := matrix(v)
		if err != nil {
			return nil, err
		}
		return meanRows(rows), nil
	case 0:
		return nil, fmt.Errorf("parse features: expected an array")
	}
	flat, err := flatten(v, nil)
	if err != nil {
		return nil, err
	}
	if len(flat)%hiddenSize == 0 {
		rows := make([][]float64, 0, len(flat)/hiddenSize)
		for i := 0; i < len(flat); i += hiddenSize {
			rows = append(rows, flat[i:i+hiddenSize])
		}
		return meanRows(rows), nil
	}
	return flat, nil
}

func matrix(v any) ([][]float64, error) {
	outer, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("parse features: expected a matrix")
	}
	rows := make([][]float64, 0, len(outer))
	for _, r := range outer {
		row, err := flatten(r, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("parse features: ragged rows (%d vs %d)", len(row), len(rows[0]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func flatten(v any, dst []float64) ([]float64, error) {
	switch t := v.(type) {
	case float64:
		return append(dst, t), nil
	case []any:
		var err error
		for _, e := range t {
			if dst, err = flatten(e, dst); err != nil {
				return nil, err
			}
		}
		return dst, nil
	}
	return nil, fmt.Errorf("parse features: unexpected %T", v)
}

func meanRows(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, len(rows[0]))
	for _, r := range rows {
		for i, x := range r {
			out[i] += x
		}
	}
	for i := range out {
		out[i] /= float64(len(rows))
	}
	return out
}

// OpenAIEmbedder uses an OpenAI-compatible /v1/embeddings endpoint
// (OpenAI, Ollama, text-embeddings-inference, vLLM).
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds an embedder for baseURL; an empty baseURL targets api.openai.com.
func NewOpenAIEmbedder(baseURL, model, apiKey string, timeout time.Duration) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIEmbedder{client: openai.NewClientWithConfig(cfg), model: model}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embeddings: empty response")
	}
	src := resp.Data[0].Embedding
	out := make([]float64, len(src))
	for i, x := range src {
		out[i] = float64(x)
	}
	return out, nil
}
