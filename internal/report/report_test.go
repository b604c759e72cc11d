package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"xinsight/pkg/types"
)

func normalFindings() []types.Finding {
	return []types.Finding{{Condition: "Normal / No Finding", Confidence: "High", Probability: 1}}
}

func abnormalRequest() Request {
	return Request{
		Findings: []types.Finding{
			{Condition: "Cardiomegaly", Confidence: "81.0%", Probability: 0.81},
			{Condition: "Pleural_Thickening", Confidence: "40.0%", Probability: 0.40},
		},
		Validation: types.Validation{Status: "Validated: Cardiac Anomalies", MatchCategory: "Cardiac Anomalies", SemanticScore: 0.8},
	}
}

func TestMessages_MultiLabel(t *testing.T) {
	msgs := Messages(abnormalRequest())
	if len(msgs) != 2 || msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("unexpected turns: %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "FINDINGS, IMPRESSION") {
		t.Fatalf("system prompt: %q", msgs[0].Content)
	}
	u := msgs[1].Content
	for _, want := range []string{
		"- Flagged Conditions: Cardiomegaly (81.0% confidence), Pleural_Thickening (40.0% confidence)",
		"- BioBERT Semantic Category: Cardiac Anomalies",
		"Do not mention CT scans or MRIs.",
	} {
		if !strings.Contains(u, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, u)
		}
	}
	if !strings.Contains(Messages(Request{})[1].Content, "No abnormalities detected.") {
		t.Fatalf("empty findings text")
	}
}

func TestMessages_Binary(t *testing.T) {
	req := Request{
		Binary:     true,
		Prediction: "Abnormal",
		Confidence: 0.934,
		Validation: types.Validation{Status: "Validated: Cardiomegaly", MatchCategory: "Cardiomegaly", SemanticScore: 0.712},
	}
	u := Messages(req)[1].Content
	for _, want := range []string{
		"- Confidence: 95.0%\n",
		"- Prediction: Abnormal\n- Confidence: 93.4%\n- BioBERT Validation: Validated: Cardiomegaly\n- Clinical Category: Cardiomegaly\n- Semantic Score: 0.71",
		"### NEW CASE REPORT:",
	} {
		if !strings.Contains(u, want) {
			t.Fatalf("binary prompt missing %q:\n%s", want, u)
		}
	}
	if strings.Contains(u, "%!") {
		t.Fatalf("format verb leak:\n%s", u)
	}
}

func TestPrompt_Flatten(t *testing.T) {
	p := Prompt(abnormalRequest())
	if !strings.HasPrefix(p, "### System:\nYou are an expert radiologist AI.") || !strings.HasSuffix(p, "### Assistant:\n") {
		t.Fatalf("unexpected prompt:\n%s", p)
	}
	if !strings.Contains(p, "### User:\nGenerate a formal radiology report") {
		t.Fatalf("user turn missing:\n%s", p)
	}
}

func TestTemplateReporter(t *testing.T) {
	ctx := context.Background()
	text, _ := TemplateReporter{}.Generate(ctx, Request{Binary: true, Prediction: "Abnormal", Confidence: 0.9})
	want := "FINDINGS:\nThe model identified radiological features consistent with an 'abnormal' finding with a calculated confidence of 90.0%.\n\nIMPRESSION:\n1. The findings are suggestive of an 'abnormal' state.\n2. Further clinical correlation is recommended."
	if text != want {
		t.Fatalf("binary template:\n%s", text)
	}
	text, _ = TemplateReporter{}.Generate(ctx, Request{Binary: true, Prediction: "Normal", Confidence: 0.75})
	if strings.Contains(text, "2. Further") {
		t.Fatalf("normal report should not recommend correlation:\n%s", text)
	}

	text, _ = TemplateReporter{}.Generate(ctx, abnormalRequest())
	for _, want := range []string{"Cardiomegaly (81.0% confidence)", "Pleural Thickening", "Semantic category: Cardiac Anomalies"} {
		if !strings.Contains(text, want) {
			t.Fatalf("multi-label template missing %q:\n%s", want, text)
		}
	}
	text, _ = TemplateReporter{}.Generate(ctx, Request{Findings: normalFindings()})
	if !strings.Contains(text, "No acute cardiopulmonary abnormality.") {
		t.Fatalf("normal template:\n%s", text)
	}
}

type failingReporter struct{}

func (failingReporter) Generate(ctx context.Context, req Request) (string, error) {
	return "", errors.New("connection refused")
}

func TestFallback(t *testing.T) {
	f := WithFallback(failingReporter{}, zerolog.Nop())
	text, err := f.Generate(context.Background(), abnormalRequest())
	if err != nil || text != "Error: Could not generate report. Please check Ollama connection." {
		t.Fatalf("multi-label fallback: %q %v", text, err)
	}
	text, _ = f.Generate(context.Background(), Request{Binary: true, Validation: types.Validation{Status: "Clinical Validation Pending"}})
	if text != "Error: Could not generate report. [Status: Clinical Validation Pending]" {
		t.Fatalf("binary fallback: %q", text)
	}
	ok := WithFallback(TemplateReporter{}, zerolog.Nop())
	if text, _ := ok.Generate(context.Background(), abnormalRequest()); !strings.HasPrefix(text, "FINDINGS:") {
		t.Fatalf("pass-through: %q", text)
	}
	if text, err := (Nop{}).Generate(context.Background(), Request{}); text != "" || err != nil {
		t.Fatalf("nop: %q %v", text, err)
	}
}

func TestChatReporter(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"llama3.2:1b","choices":[{"index":0,"message":{"role":"assistant","content":"  FINDINGS:\nEnlarged heart.  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	r := NewChatReporter(ChatOptions{BaseURL: srv.URL + "/v1", Timeout: 2 * time.Second})
	text, err := r.Generate(context.Background(), abnormalRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "FINDINGS:\nEnlarged heart." {
		t.Fatalf("text: %q", text)
	}
	if got.Model != DefaultChatModel || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("request: %+v", got)
	}
}

func TestChatReporter_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model \"llama3.2:1b\" not found","type":"api_error"}}`))
	}))
	defer srv.Close()
	r := NewChatReporter(ChatOptions{BaseURL: srv.URL + "/v1", Timeout: 2 * time.Second})
	if _, err := r.Generate(context.Background(), abnormalRequest()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLlamaStubOrReal(t *testing.T) {
	if LlamaAvailable() {
		t.Skip("llama support built in; requires a model file")
	}
	if _, err := NewLlamaReporter("model.gguf", 2048, 2, 64, 0.2); err == nil {
		t.Fatalf("stub should refuse to load")
	}
}
