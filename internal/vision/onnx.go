//go:build cgo

package vision

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"xinsight/internal/common/errs"
	"xinsight/pkg/types"
)

var (
	runtimeMu   sync.Mutex
	runtimeInit bool
)

// InitRuntime loads the ONNX Runtime shared library once per process.
// An empty libPath uses the loader's default search.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if runtimeInit {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return errs.ErrDependencyUnavailable(fmt.Sprintf("initialize onnxruntime: %v", err))
	}
	runtimeInit = true
	return nil
}

// ShutdownRuntime releases the ONNX Runtime environment.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	if !runtimeInit {
		return nil
	}
	runtimeInit = false
	return ort.DestroyEnvironment()
}

// InspectONNX lists the model's inputs and outputs.
func InspectONNX(path, libPath string) ([]types.TensorInfo, []types.TensorInfo, error) {
	if err := InitRuntime(libPath); err != nil {
		return nil, nil, err
	}
	ins, outs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	conv := func(infos []ort.InputOutputInfo) []types.TensorInfo {
		out := make([]types.TensorInfo, 0, len(infos))
		for _, i := range infos {
			out = append(out, types.TensorInfo{Name: i.Name, Shape: append([]int64(nil), i.Dimensions...)})
		}
		return out
	}
	return conv(ins), conv(outs), nil
}

// ONNXBackbone runs a classifier through ONNX Runtime. Tensors are allocated
// once and reused, so Forward calls are serialized.
type ONNXBackbone struct {
	mu      sync.Mutex
	meta    Metadata
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	outputs []*ort.Tensor[float32]
}

// OpenONNX creates a session for the model at path. meta is completed from the
// model's own description and validated.
func OpenONNX(path string, meta Metadata, libPath string) (*ONNXBackbone, error) {
	ins, outs, err := InspectONNX(path, libPath)
	if err != nil {
		return nil, err
	}
	meta.ApplyDefaults()
	meta.Complete(ins, outs)
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	b := &ONNXBackbone{meta: meta}
	b.input, err = ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	names := []string{meta.OutputName}
	shapes := [][]int64{meta.OutputShape}
	if meta.HasGradCAM() {
		names = append(names, meta.ActivationsOutput, meta.GradientsOutput)
		shapes = append(shapes, meta.ActivationsShape, meta.GradientsShape)
	}
	outputs := make([]ort.ArbitraryTensor, 0, len(names))
	for i, s := range shapes {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(s...))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("create output tensor %s: %w", names[i], err)
		}
		b.outputs = append(b.outputs, t)
		outputs = append(outputs, t)
	}
	b.session, err = ort.NewAdvancedSession(path,
		[]string{meta.InputName}, names,
		[]ort.ArbitraryTensor{b.input}, outputs,
		nil)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return b, nil
}

func (b *ONNXBackbone) Metadata() Metadata { return b.meta }

// Forward copies input into the session, runs it and copies the outputs out.
func (b *ONNXBackbone) Forward(ctx context.Context, input []float32) (*Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dst := b.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input), len(dst))
	}
	copy(dst, input)
	if err := b.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	var acts, grads []float32
	if len(b.outputs) == 3 {
		acts = b.outputs[1].GetData()
		grads = b.outputs[2].GetData()
	}
	return buildOutput(b.meta, b.outputs[0].GetData(), acts, grads)
}

// Close releases the session and tensors. The runtime itself stays initialised.
func (b *ONNXBackbone) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	if b.input != nil {
		b.input.Destroy()
		b.input = nil
	}
	for _, t := range b.outputs {
		t.Destroy()
	}
	b.outputs = nil
	return nil
}
