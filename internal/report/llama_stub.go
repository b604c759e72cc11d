//go:build !llama

package report

// This file provides a no-CGO stub for the in-process llama reporter. It is
// compiled when the 'llama' build tag is NOT set, keeping default builds CGO-free.

import (
	"context"

	"xinsight/internal/common/errs"
)

const llamaBuilt = false

// LlamaReporter is a stub that refuses to run without the 'llama' build tag.
type LlamaReporter struct{}

func NewLlamaReporter(modelPath string, ctxSize, threads, maxTokens int, temperature float32) (*LlamaReporter, error) {
	return nil, errs.ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (r *LlamaReporter) Generate(ctx context.Context, req Request) (string, error) {
	return "", errs.ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}

func (r *LlamaReporter) Close() error { return nil }
