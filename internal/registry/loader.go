package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xinsight/internal/common/fsutil"
	"xinsight/pkg/types"
)

// LoadDir scans a directory for *.onnx files and pairs each with its metadata sidecar.
// ID is the full filename (including extension); Path is the absolute file path.
func LoadDir(dir string) ([]types.ModelFile, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.ModelFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".onnx") {
			continue
		}
		p := filepath.Join(abs, name)
		m := types.ModelFile{ID: name, Path: p, MetadataPath: fsutil.FindSidecar(p)}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Resolve turns a configured model path into a single model file. A file path is
// used as is; a directory is scanned and the model named id is picked, or the
// first one in name order when id is empty.
func Resolve(path, id string) (types.ModelFile, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return types.ModelFile{}, err
	}
	if !fsutil.IsDir(p) {
		size, err := fsutil.FileSize(p)
		if err != nil {
			return types.ModelFile{}, fmt.Errorf("model file: %w", err)
		}
		abs, _ := filepath.Abs(p)
		return types.ModelFile{ID: filepath.Base(p), Path: abs, MetadataPath: fsutil.FindSidecar(abs), SizeBytes: size}, nil
	}
	models, err := LoadDir(p)
	if err != nil {
		return types.ModelFile{}, err
	}
	if len(models) == 0 {
		return types.ModelFile{}, fmt.Errorf("no .onnx models in %s", p)
	}
	if id == "" {
		return models[0], nil
	}
	for _, m := range models {
		if m.ID == id || fsutil.Stem(m.ID) == id {
			return m, nil
		}
	}
	return types.ModelFile{}, fmt.Errorf("model %q not found in %s", id, p)
}
