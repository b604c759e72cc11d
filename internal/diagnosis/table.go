// Package diagnosis turns classifier probabilities into flagged findings.
package diagnosis

import (
	"fmt"

	"xinsight/pkg/types"
)

// NoFinding is the label a multi-label model uses for a clear image.
const NoFinding = "No Finding"

// Table is the ordered list of output labels with their decision thresholds.
// Order matches the model's output vector.
type Table struct {
	Labels     []string
	Thresholds []float32
}

// DefaultLabels are the ChestX-ray14 labels plus "No Finding" in model output order.
var DefaultLabels = []string{
	"Atelectasis", "Cardiomegaly", "Consolidation", "Edema", "Effusion",
	"Emphysema", "Fibrosis", "Hernia", "Infiltration", "Mass",
	NoFinding, "Nodule", "Pleural_Thickening", "Pneumonia", "Pneumothorax",
}

// DefaultThresholds are the calibrated per-label operating points.
var DefaultThresholds = map[string]float32{
	"Atelectasis":        0.2650123,
	"Cardiomegaly":       0.21395917,
	"Consolidation":      0.2007266,
	"Edema":              0.21212262,
	"Effusion":           0.26717928,
	"Emphysema":          0.23465158,
	"Fibrosis":           0.16066095,
	"Hernia":             0.22812304,
	"Infiltration":       0.26759756,
	"Mass":               0.20654865,
	NoFinding:            0.3606834,
	"Nodule":             0.21285455,
	"Pleural_Thickening": 0.21341527,
	"Pneumonia":          0.19276722,
	"Pneumothorax":       0.2455083,
}

// DefaultTable returns the built-in ChestX-ray14 table.
func DefaultTable() Table {
	t, _ := NewTable(DefaultLabels, DefaultThresholds, nil)
	return t
}

// NewTable builds a table for labels. Thresholds from overrides win over base;
// a label with no threshold in either is an error.
func NewTable(labels []string, base, overrides map[string]float32) (Table, error) {
	if len(labels) == 0 {
		return Table{}, fmt.Errorf("diagnosis: no labels")
	}
	t := Table{Labels: append([]string(nil), labels...), Thresholds: make([]float32, len(labels))}
	seen := make(map[string]bool, len(labels))
	for i, l := range labels {
		if seen[l] {
			return Table{}, fmt.Errorf("diagnosis: duplicate label %q", l)
		}
		seen[l] = true
		th, ok := overrides[l]
		if !ok {
			th, ok = base[l]
		}
		if !ok {
			return Table{}, fmt.Errorf("diagnosis: no threshold for label %q", l)
		}
		if th < 0 || th > 1 {
			return Table{}, fmt.Errorf("diagnosis: threshold %v for %q outside [0,1]", th, l)
		}
		t.Thresholds[i] = th
	}
	return t, nil
}

// Len is the number of labels.
func (t Table) Len() int { return len(t.Labels) }

// Rows returns the table as label/threshold pairs.
func (t Table) Rows() []types.LabelThreshold {
	out := make([]types.LabelThreshold, len(t.Labels))
	for i, l := range t.Labels {
		out[i] = types.LabelThreshold{Label: l, Threshold: t.Thresholds[i]}
	}
	return out
}
