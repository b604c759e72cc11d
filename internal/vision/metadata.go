package vision

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"xinsight/pkg/types"
)

// Tensor layouts.
const (
	LayoutNHWC = "NHWC"
	LayoutNCHW = "NCHW"
)

// Classification modes.
const (
	ModeMultiLabel = "multilabel"
	ModeBinary     = "binary"
)

const defaultImageSize = 224

// Metadata describes how to feed the classifier and how to read its outputs.
// It is stored as a JSON sidecar next to the .onnx file.
type Metadata struct {
	InputName   string  `json:"input_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputName  string  `json:"output_name"`
	OutputShape []int64 `json:"output_shape"`
	ImageSize   int     `json:"image_size"`
	// Layout of the image input and of the feature-map outputs: NHWC (Keras) or NCHW.
	Layout     string             `json:"layout"`
	Classes    []string           `json:"classes"`
	Thresholds map[string]float32 `json:"thresholds,omitempty"`
	Mode       string             `json:"mode"`
	// BinaryLabels are the [negative, positive] labels of a single-output model.
	BinaryLabels []string `json:"binary_labels,omitempty"`

	// Optional Grad-CAM outputs: the last convolutional feature map and the
	// per-class gradient of the probability with respect to it.
	ActivationsOutput string  `json:"activations_output,omitempty"`
	ActivationsShape  []int64 `json:"activations_shape,omitempty"`
	GradientsOutput   string  `json:"gradients_output,omitempty"`
	GradientsShape    []int64 `json:"gradients_shape,omitempty"`
	ActivationLayer   string  `json:"activation_layer,omitempty"`
}

// LoadMetadata reads a JSON sidecar. Defaults are applied but the result is not
// validated since shapes may still have to come from the model itself.
func LoadMetadata(path string) (Metadata, error) {
	var m Metadata
	b, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	m.ApplyDefaults()
	return m, nil
}

// ApplyDefaults fills unset fields.
func (m *Metadata) ApplyDefaults() {
	if m.ImageSize <= 0 {
		m.ImageSize = defaultImageSize
	}
	m.Layout = strings.ToUpper(m.Layout)
	if m.Layout == "" {
		m.Layout = LayoutNHWC
	}
	m.Mode = strings.ToLower(m.Mode)
	m.resolveMode()
	if len(m.InputShape) == 0 {
		s := int64(m.ImageSize)
		if m.Layout == LayoutNCHW {
			m.InputShape = []int64{1, 3, s, s}
		} else {
			m.InputShape = []int64{1, s, s, 3}
		}
	}
}

// resolveMode infers the mode when the sidecar leaves it out. Without classes
// it waits for the output shape: a single output means a binary model.
func (m *Metadata) resolveMode() {
	if m.Mode == "" {
		switch {
		case len(m.Classes) > 1:
			m.Mode = ModeMultiLabel
		case len(m.OutputShape) > 0:
			m.Mode = ModeMultiLabel
			if m.OutputShape[len(m.OutputShape)-1] == 1 {
				m.Mode = ModeBinary
			}
		}
	}
	if m.Mode == ModeBinary && len(m.BinaryLabels) == 0 {
		m.BinaryLabels = []string{"Normal", "Abnormal"}
	}
}

// Complete fills names and shapes the sidecar left out from the model's own
// input/output description.
func (m *Metadata) Complete(inputs, outputs []types.TensorInfo) {
	if m.InputName == "" && len(inputs) > 0 {
		m.InputName = inputs[0].Name
	}
	if m.OutputName == "" && len(outputs) > 0 {
		m.OutputName = outputs[0].Name
	}
	for _, in := range inputs {
		if in.Name == m.InputName && !concrete(m.InputShape) {
			m.InputShape = fixBatch(in.Shape)
		}
	}
	for _, out := range outputs {
		switch out.Name {
		case m.OutputName:
			if !concrete(m.OutputShape) {
				m.OutputShape = fixBatch(out.Shape)
			}
		case m.ActivationsOutput:
			if !concrete(m.ActivationsShape) {
				m.ActivationsShape = fixBatch(out.Shape)
			}
		case m.GradientsOutput:
			if !concrete(m.GradientsShape) {
				m.GradientsShape = append([]int64(nil), out.Shape...)
			}
		}
	}
	// The gradients carry one slice per class on their leading axis.
	if len(m.GradientsShape) > 0 && m.GradientsShape[0] <= 0 && concrete(m.OutputShape) {
		m.GradientsShape = append([]int64{int64(m.NumOutputs())}, m.GradientsShape[1:]...)
	}
	m.resolveMode()
}

// Validate checks the metadata is complete enough to run a session.
func (m Metadata) Validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("metadata: input_name and output_name are required")
	}
	if m.Layout != LayoutNHWC && m.Layout != LayoutNCHW {
		return fmt.Errorf("metadata: unknown layout %q", m.Layout)
	}
	if m.Mode != ModeMultiLabel && m.Mode != ModeBinary {
		return fmt.Errorf("metadata: unknown mode %q", m.Mode)
	}
	if m.Mode == ModeBinary && len(m.BinaryLabels) != 2 {
		return fmt.Errorf("metadata: binary_labels needs exactly 2 entries, got %d", len(m.BinaryLabels))
	}
	if !concrete(m.InputShape) || !concrete(m.OutputShape) {
		return fmt.Errorf("metadata: input/output shapes must be fully known, got %v and %v", m.InputShape, m.OutputShape)
	}
	if want := 3 * m.ImageSize * m.ImageSize; int(volume(m.InputShape)) != want {
		return fmt.Errorf("metadata: input shape %v does not hold a %dx%d RGB image", m.InputShape, m.ImageSize, m.ImageSize)
	}
	if n := len(m.Classes); m.Mode == ModeMultiLabel && n > 0 && int(volume(m.OutputShape)) != n {
		return fmt.Errorf("metadata: output shape %v does not match %d classes", m.OutputShape, n)
	}
	if (m.ActivationsOutput == "") != (m.GradientsOutput == "") {
		return fmt.Errorf("metadata: activations_output and gradients_output must be set together")
	}
	if m.HasGradCAM() {
		if len(m.ActivationsShape) != 4 || !concrete(m.ActivationsShape) {
			return fmt.Errorf("metadata: activations_shape must be a known 4-D shape, got %v", m.ActivationsShape)
		}
		if len(m.GradientsShape) != 4 || !concrete(m.GradientsShape) {
			return fmt.Errorf("metadata: gradients_shape must be a known 4-D shape, got %v", m.GradientsShape)
		}
		if int(m.GradientsShape[0]) != m.NumOutputs() {
			return fmt.Errorf("metadata: gradients_shape %v needs one slice per output (%d)", m.GradientsShape, m.NumOutputs())
		}
		if volume(m.GradientsShape) != m.GradientsShape[0]*volume(m.ActivationsShape[1:]) {
			return fmt.Errorf("metadata: gradients %v do not match activations %v", m.GradientsShape, m.ActivationsShape)
		}
	}
	return nil
}

// HasGradCAM reports whether the model exports what Grad-CAM needs.
func (m Metadata) HasGradCAM() bool {
	return m.ActivationsOutput != "" && m.GradientsOutput != ""
}

// NumOutputs is the number of probabilities produced per image.
func (m Metadata) NumOutputs() int { return int(volume(m.OutputShape)) }

// featureDims returns the channel and spatial sizes of the activation map.
func (m Metadata) featureDims() (c, h, w int) {
	s := m.ActivationsShape
	if m.Layout == LayoutNCHW {
		return int(s[1]), int(s[2]), int(s[3])
	}
	return int(s[3]), int(s[1]), int(s[2])
}

func concrete(shape []int64) bool {
	if len(shape) == 0 {
		return false
	}
	for _, d := range shape {
		if d <= 0 {
			return false
		}
	}
	return true
}

// fixBatch replaces a dynamic leading batch dimension with 1.
func fixBatch(shape []int64) []int64 {
	out := append([]int64(nil), shape...)
	if len(out) > 0 && out[0] <= 0 {
		out[0] = 1
	}
	return out
}

func volume(shape []int64) int64 {
	v := int64(1)
	for _, d := range shape {
		v *= d
	}
	return v
}
