package semantic

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMeanPool_Shapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []float64
	}{
		{"3d", `[[[1,2],[3,4]],[[100,100],[100,100]]]`, []float64{2, 3}},
		{"2d", `[[1,2],[3,6]]`, []float64{2, 4}},
		{"flat odd", `[1,2,3]`, []float64{1, 2, 3}},
	}
	for _, tc := range cases {
		got, err := MeanPool([]byte(tc.raw))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
			}
		}
	}
}

func TestMeanPool_Flat768(t *testing.T) {
	flat := make([]float64, 2*768)
	for i := range flat {
		if i < 768 {
			flat[i] = 1
		} else {
			flat[i] = 3
		}
	}
	raw, _ := json.Marshal(flat)
	got, err := MeanPool(raw)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if len(got) != 768 || got[0] != 2 || got[767] != 2 {
		t.Fatalf("unexpected pooled vector len=%d first=%v", len(got), got[0])
	}
}

func TestMeanPool_Errors(t *testing.T) {
	for _, raw := range []string{`{`, `{"error":"loading"}`, `[]`, `[[1,2],[3]]`, `[["a"]]`, `7`} {
		if _, err := MeanPool([]byte(raw)); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}
}

func TestHFEmbedder_Request(t *testing.T) {
	var gotPath, gotAuth, gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Inputs string `json:"inputs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotInput = body.Inputs
		_, _ = w.Write([]byte(`[[0.5,1.5],[1.5,2.5]]`))
	}))
	defer srv.Close()

	e := NewHFEmbedder(srv.URL+"/", "dmis-lab/biobert-v1.1", "hf_secret", time.Second)
	vec, err := e.Embed(context.Background(), "X-ray findings include Mass.")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if gotPath != "/models/dmis-lab/biobert-v1.1/pipeline/feature-extraction" {
		t.Fatalf("path: %s", gotPath)
	}
	if gotAuth != "Bearer hf_secret" || gotInput != "X-ray findings include Mass." {
		t.Fatalf("auth=%q input=%q", gotAuth, gotInput)
	}
	if len(vec) != 2 || vec[0] != 1 || vec[1] != 2 {
		t.Fatalf("vec: %v", vec)
	}
}

func TestHFEmbedder_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Model is loading"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	_, err := NewHFEmbedder(srv.URL, "m", "", time.Second).Embed(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel, _ = req["model"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"nomic-embed-text","data":[{"object":"embedding","index":0,"embedding":[0.25,0.5,1]}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/v1", "nomic-embed-text", "k", time.Second)
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if gotModel != "nomic-embed-text" || len(vec) != 3 || math.Abs(vec[2]-1) > 1e-9 {
		t.Fatalf("model=%q vec=%v", gotModel, vec)
	}
}
