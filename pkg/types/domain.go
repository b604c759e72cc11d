package types

// ModelFile is an ONNX classifier discovered on disk.
type ModelFile struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	MetadataPath string `json:"metadata_path,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
}

// TensorInfo describes one model input or output.
type TensorInfo struct {
	Name  string  `json:"name"`
	Shape []int64 `json:"shape"`
}
