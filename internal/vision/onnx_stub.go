//go:build !cgo

package vision

import (
	"context"

	"xinsight/internal/common/errs"
	"xinsight/pkg/types"
)

// This file is compiled for CGO-free builds. ONNX Runtime is loaded through cgo,
// so every entry point reports the dependency as unavailable.

func errNoRuntime() error {
	return errs.ErrDependencyUnavailable("onnxruntime support not built (requires cgo)")
}

func InitRuntime(libPath string) error { return errNoRuntime() }

func ShutdownRuntime() error { return nil }

func InspectONNX(path, libPath string) ([]types.TensorInfo, []types.TensorInfo, error) {
	return nil, nil, errNoRuntime()
}

// ONNXBackbone is never constructed in CGO-free builds.
type ONNXBackbone struct{ meta Metadata }

func OpenONNX(path string, meta Metadata, libPath string) (*ONNXBackbone, error) {
	return nil, errNoRuntime()
}

func (b *ONNXBackbone) Metadata() Metadata { return b.meta }

func (b *ONNXBackbone) Forward(ctx context.Context, input []float32) (*Output, error) {
	return nil, errNoRuntime()
}

func (b *ONNXBackbone) Close() error { return nil }
