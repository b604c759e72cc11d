package vision

import (
	"fmt"

	"xinsight/pkg/types"
)

// ResolveMetadata loads the sidecar for file. metaPath overrides the sidecar
// discovered next to the model; with neither, defaults are used and names and
// shapes come from the model.
func ResolveMetadata(file types.ModelFile, metaPath string) (Metadata, error) {
	if metaPath == "" {
		metaPath = file.MetadataPath
	}
	if metaPath == "" {
		var m Metadata
		m.ApplyDefaults()
		return m, nil
	}
	return LoadMetadata(metaPath)
}

// Load opens the model file with its resolved metadata.
func Load(file types.ModelFile, metaPath, libPath string) (*ONNXBackbone, error) {
	meta, err := ResolveMetadata(file, metaPath)
	if err != nil {
		return nil, err
	}
	b, err := OpenONNX(file.Path, meta, libPath)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", file.ID, err)
	}
	return b, nil
}

// Summary describes a model file for the check-model command.
type Summary struct {
	Model    types.ModelFile    `json:"model"`
	Inputs   []types.TensorInfo `json:"inputs"`
	Outputs  []types.TensorInfo `json:"outputs"`
	Metadata Metadata           `json:"metadata"`
	// Problem is set when the metadata cannot drive a session.
	Problem string `json:"problem,omitempty"`
}

// Describe inspects the model and reports its tensors and effective metadata.
func Describe(file types.ModelFile, metaPath, libPath string) (Summary, error) {
	s := Summary{Model: file}
	meta, err := ResolveMetadata(file, metaPath)
	if err != nil {
		return s, err
	}
	s.Inputs, s.Outputs, err = InspectONNX(file.Path, libPath)
	if err != nil {
		return s, err
	}
	meta.Complete(s.Inputs, s.Outputs)
	if err := meta.Validate(); err != nil {
		s.Problem = err.Error()
	}
	s.Metadata = meta
	return s, nil
}
