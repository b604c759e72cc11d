// Package report synthesizes a radiology report from the analysis results.
package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"xinsight/pkg/types"
)

// Request is everything a reporter may use to write the report.
type Request struct {
	// Binary selects the Normal/Abnormal prompt; otherwise Findings are used.
	Binary bool
	// Findings are the flagged conditions of a multi-label analysis.
	Findings []types.Finding
	// Prediction and Confidence are set for binary analyses.
	Prediction string
	Confidence float64
	Validation types.Validation
}

// Reporter produces report text.
type Reporter interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Fallback messages returned in place of a report when generation fails.
const (
	fallbackMultiLabel = "Error: Could not generate report. Please check Ollama connection."
	fallbackBinary     = "Error: Could not generate report. [Status: %s]"
)

// FallbackText is the text used when the reporter fails for req.
func FallbackText(req Request) string {
	if req.Binary {
		return fmt.Sprintf(fallbackBinary, req.Validation.Status)
	}
	return fallbackMultiLabel
}

// Fallback wraps a Reporter so report failures never fail the analysis.
type Fallback struct {
	inner Reporter
	log   zerolog.Logger
}

// WithFallback wraps r.
func WithFallback(r Reporter, log zerolog.Logger) *Fallback {
	return &Fallback{inner: r, log: log}
}

// Generate returns the inner report, or the fallback text on error.
func (f *Fallback) Generate(ctx context.Context, req Request) (string, error) {
	text, err := f.inner.Generate(ctx, req)
	if err != nil {
		f.log.Warn().Err(err).Msg("report generation failed")
		return FallbackText(req), nil
	}
	return text, nil
}

// LlamaAvailable reports whether in-process llama.cpp support was compiled in.
func LlamaAvailable() bool { return llamaBuilt }

// Nop returns an empty report; used when reporting is disabled.
type Nop struct{}

func (Nop) Generate(ctx context.Context, req Request) (string, error) { return "", nil }
