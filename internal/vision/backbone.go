package vision

import (
	"context"
	"fmt"
)

// Backbone runs the classifier on one preprocessed image.
type Backbone interface {
	Forward(ctx context.Context, input []float32) (*Output, error)
	Metadata() Metadata
	Close() error
}

// Output is the result of one forward pass.
type Output struct {
	// Probabilities holds one sigmoid output per class (a single value for binary models).
	Probabilities []float32
	// Activations is the last convolutional feature map, nil when the model
	// does not export it.
	Activations *FeatureMap
	// Gradients holds d probability_k / d Activations for every output k.
	Gradients []*FeatureMap
}

// Gradient returns the gradient block for output k, or nil.
func (o *Output) Gradient(k int) *FeatureMap {
	if o == nil || k < 0 || k >= len(o.Gradients) {
		return nil
	}
	return o.Gradients[k]
}

// FeatureMap is a C×H×W tensor stored channel-major: Data[c*H*W + y*W + x].
type FeatureMap struct {
	C, H, W int
	Data    []float32
}

// At returns the value of channel c at (y, x).
func (f *FeatureMap) At(c, y, x int) float32 { return f.Data[c*f.H*f.W+y*f.W+x] }

// Channel returns the H×W plane of channel c without copying.
func (f *FeatureMap) Channel(c int) []float32 {
	n := f.H * f.W
	return f.Data[c*n : (c+1)*n]
}

// NewFeatureMap copies one C×H×W block laid out as layout into channel-major order.
func NewFeatureMap(data []float32, layout string, c, h, w int) (*FeatureMap, error) {
	if len(data) != c*h*w {
		return nil, fmt.Errorf("feature map: have %d values, want %d", len(data), c*h*w)
	}
	fm := &FeatureMap{C: c, H: h, W: w, Data: make([]float32, len(data))}
	if layout == LayoutNCHW {
		copy(fm.Data, data)
		return fm, nil
	}
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := (y*w + x) * c
			for ch := 0; ch < c; ch++ {
				fm.Data[ch*plane+y*w+x] = data[src+ch]
			}
		}
	}
	return fm, nil
}

// splitGradients cuts the flat gradients output into one feature map per class.
func splitGradients(data []float32, layout string, classes, c, h, w int) ([]*FeatureMap, error) {
	block := c * h * w
	if len(data) != classes*block {
		return nil, fmt.Errorf("gradients: have %d values, want %d", len(data), classes*block)
	}
	out := make([]*FeatureMap, classes)
	for k := 0; k < classes; k++ {
		fm, err := NewFeatureMap(data[k*block:(k+1)*block], layout, c, h, w)
		if err != nil {
			return nil, err
		}
		out[k] = fm
	}
	return out, nil
}

// buildOutput assembles an Output from the raw output buffers of a session.
func buildOutput(meta Metadata, probs, acts, grads []float32) (*Output, error) {
	out := &Output{Probabilities: append([]float32(nil), probs...)}
	if !meta.HasGradCAM() || acts == nil || grads == nil {
		return out, nil
	}
	c, h, w := meta.featureDims()
	fm, err := NewFeatureMap(acts, meta.Layout, c, h, w)
	if err != nil {
		return nil, err
	}
	gs, err := splitGradients(grads, meta.Layout, int(meta.GradientsShape[0]), c, h, w)
	if err != nil {
		return nil, err
	}
	out.Activations = fm
	out.Gradients = gs
	return out, nil
}
