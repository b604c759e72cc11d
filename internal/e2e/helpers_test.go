package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"xinsight/internal/analyzer"
	"xinsight/internal/config"
	"xinsight/internal/diagnosis"
	"xinsight/internal/httpapi"
	"xinsight/internal/report"
	"xinsight/internal/semantic"
	"xinsight/internal/vision"
)

// fakeBackbone stands in for the ONNX session: fixed probabilities and a 2x2
// feature map with one gradient per output.
type fakeBackbone struct {
	meta  vision.Metadata
	probs []float32
}

func (f *fakeBackbone) Metadata() vision.Metadata { return f.meta }
func (f *fakeBackbone) Close() error              { return nil }

func (f *fakeBackbone) Forward(ctx context.Context, input []float32) (*vision.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &vision.Output{
		Probabilities: append([]float32(nil), f.probs...),
		Activations:   &vision.FeatureMap{C: 2, H: 2, W: 2, Data: []float32{1, 0, 0, 1, 0, 1, 1, 0}},
	}
	for range f.probs {
		out.Gradients = append(out.Gradients, &vision.FeatureMap{C: 2, H: 2, W: 2, Data: []float32{1, 1, 1, 1, 0.5, 0.5, 0.5, 0.5}})
	}
	return out, nil
}

func multiLabelBackbone(set map[string]float32) *fakeBackbone {
	tb := diagnosis.DefaultTable()
	probs := make([]float32, tb.Len())
	for i, l := range tb.Labels {
		probs[i] = set[l]
	}
	meta := vision.Metadata{OutputShape: []int64{1, int64(tb.Len())}, ImageSize: 16}
	meta.ApplyDefaults()
	return &fakeBackbone{meta: meta, probs: probs}
}

func binaryBackbone(score float32) *fakeBackbone {
	meta := vision.Metadata{OutputShape: []int64{1, 1}, ImageSize: 16}
	meta.ApplyDefaults()
	return &fakeBackbone{meta: meta, probs: []float32{score}}
}

// newEmbeddingServer mimics the Hugging Face feature-extraction pipeline.
// Texts mentioning effusion point one way, everything else another.
func newEmbeddingServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/pipeline/feature-extraction") {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Inputs string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vec := []float64{1, 0, 0}
		if strings.Contains(strings.ToLower(body.Inputs), "effusion") {
			vec = []float64{0, 1, 0}
		}
		// [tokens][dim]; two identical tokens
		_ = json.NewEncoder(w).Encode([][]float64{vec, vec})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// newChatServer mimics an OpenAI-compatible /v1/chat/completions endpoint and
// records the last user prompt.
func newChatServer(t *testing.T, reply string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var lastPrompt atomic.Value
	lastPrompt.Store("")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, m := range req.Messages {
			if m.Role == "user" {
				lastPrompt.Store(m.Content)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "llama3.2:1b",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &lastPrompt
}

// stackOptions selects the remote dependencies of a test server. Empty URLs
// disable the corresponding stage.
type stackOptions struct {
	embeddingURL string
	chatURL      string
	binaryKB     bool
}

// newServer wires the full pipeline behind the HTTP mux. bb may be nil to
// simulate a model that failed to load.
func newServer(t *testing.T, bb vision.Backbone, o stackOptions) *httptest.Server {
	t.Helper()
	log := zerolog.Nop()

	var validator *semantic.Validator
	if o.embeddingURL != "" {
		emb, err := semantic.FromConfig(config.EmbeddingConfig{
			Provider:       config.EmbeddingHuggingFace,
			BaseURL:        o.embeddingURL,
			Model:          "dmis-lab/biobert-v1.1",
			TimeoutSeconds: 5,
		})
		if err != nil {
			t.Fatalf("embedder: %v", err)
		}
		entries := semantic.MultiLabelEntries()
		if o.binaryKB {
			entries = semantic.BinaryEntries()
		}
		kb := semantic.NewKnowledgeBase(entries)
		kb.Warmup(context.Background(), emb, log)
		validator = semantic.NewValidator(kb, emb, semantic.DefaultThreshold, log)
	}

	rcfg := config.ReportConfig{Provider: config.ReportNone}
	if o.chatURL != "" {
		rcfg = config.ReportConfig{Provider: config.ReportOpenAI, BaseURL: o.chatURL + "/v1", Model: "llama3.2:1b", MaxTokens: 64, TimeoutSeconds: 5}
	}
	reporter, closeReporter, err := report.FromConfig(rcfg, log)
	if err != nil {
		t.Fatalf("reporter: %v", err)
	}
	t.Cleanup(func() { _ = closeReporter() })

	a, err := analyzer.New(bb, analyzer.Options{Validator: validator, Reporter: reporter, Log: log})
	if err != nil {
		t.Fatalf("analyzer: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(a))
	t.Cleanup(srv.Close)
	return srv
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// postImage uploads data as multipart field "file" to /predict.
func postImage(t *testing.T, base string, data []byte) (*http.Response, []byte) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "cxr.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, base+"/predict", &body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
