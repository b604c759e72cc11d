package diagnosis

import (
	"fmt"
	"sort"
	"strings"

	"xinsight/pkg/types"
)

// Patient status values.
const (
	StatusNormal   = "Normal"
	StatusAbnormal = "Abnormal"
)

// NormalCondition is reported when nothing pathological was flagged.
const NormalCondition = "Normal / No Finding"

// Evaluation is the outcome of applying a Table to one probability vector.
type Evaluation struct {
	Status   string
	Findings []types.Finding
	// Flagged lists the indices of every label at or above its threshold, in
	// output order. "No Finding" is included when flagged.
	Flagged []int
}

// Abnormal reports whether a pathological condition was flagged.
func (e Evaluation) Abnormal() bool { return e.Status == StatusAbnormal }

// EvaluateMultiLabel flags every label whose probability reaches its threshold.
func EvaluateMultiLabel(t Table, probs []float32) (Evaluation, error) {
	if len(probs) != t.Len() {
		return Evaluation{}, fmt.Errorf("diagnosis: %d probabilities for %d labels", len(probs), t.Len())
	}
	var ev Evaluation
	var findings []types.Finding
	for i, p := range probs {
		if p < t.Thresholds[i] {
			continue
		}
		ev.Flagged = append(ev.Flagged, i)
		if t.Labels[i] == NoFinding {
			continue
		}
		findings = append(findings, types.Finding{
			Condition:   t.Labels[i],
			Confidence:  fmt.Sprintf("%.1f%%", float64(p)*100),
			Probability: float64(p),
		})
	}
	if len(findings) == 0 {
		ev.Status = StatusNormal
		ev.Findings = []types.Finding{{Condition: NormalCondition, Confidence: "High", Probability: 1.0}}
		return ev, nil
	}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Probability > findings[j].Probability })
	ev.Status = StatusAbnormal
	ev.Findings = findings
	return ev, nil
}

// BinaryResult is the outcome for a single-output model.
type BinaryResult struct {
	Label      string
	Confidence float64
	Abnormal   bool
}

// EvaluateBinary applies the 0.5 decision rule. labels is [negative, positive].
func EvaluateBinary(score float32, labels []string) (BinaryResult, error) {
	if len(labels) != 2 {
		return BinaryResult{}, fmt.Errorf("diagnosis: binary mode needs 2 labels, got %d", len(labels))
	}
	s := float64(score)
	if score >= 0.5 {
		return BinaryResult{Label: labels[1], Confidence: s, Abnormal: true}, nil
	}
	return BinaryResult{Label: labels[0], Confidence: 1 - s}, nil
}

// Summary joins the flagged conditions, or returns "Normal" when none are
// pathological.
func Summary(findings []types.Finding) string {
	var names []string
	for _, f := range findings {
		if f.Condition == NormalCondition {
			continue
		}
		names = append(names, f.Condition)
	}
	if len(names) == 0 {
		return StatusNormal
	}
	return strings.Join(names, ", ")
}
