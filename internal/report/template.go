package report

import (
	"context"
	"fmt"
	"strings"

	"xinsight/internal/diagnosis"
)

// TemplateReporter writes a fixed-form FINDINGS/IMPRESSION report without a
// language model.
type TemplateReporter struct{}

func (TemplateReporter) Generate(ctx context.Context, req Request) (string, error) {
	if req.Binary {
		return binaryTemplate(req.Prediction, req.Confidence), nil
	}
	return multiLabelTemplate(req), nil
}

func binaryTemplate(prediction string, confidence float64) string {
	p := strings.ToLower(prediction)
	findings := fmt.Sprintf("The model identified radiological features consistent with an '%s' finding with a calculated confidence of %.1f%%.", p, confidence*100)
	impression := fmt.Sprintf("1. The findings are suggestive of an '%s' state.", p)
	if p == "abnormal" {
		impression += "\n2. Further clinical correlation is recommended."
	}
	return "FINDINGS:\n" + findings + "\n\nIMPRESSION:\n" + impression
}

func multiLabelTemplate(req Request) string {
	var abnormal []string
	var b strings.Builder
	b.WriteString("FINDINGS:\n")
	for _, f := range req.Findings {
		if f.Condition == diagnosis.NormalCondition {
			b.WriteString("No pathological findings were flagged. The lungs appear clear and the cardiac silhouette is within normal limits.\n")
			continue
		}
		abnormal = append(abnormal, f.Condition)
		fmt.Fprintf(&b, "- Radiological features consistent with %s (%s confidence).\n", strings.ReplaceAll(f.Condition, "_", " "), f.Confidence)
	}
	if len(req.Findings) == 0 {
		b.WriteString("No abnormalities detected.\n")
	}
	b.WriteString("\nIMPRESSION:\n")
	if len(abnormal) == 0 {
		b.WriteString("1. No acute cardiopulmonary abnormality.")
		return b.String()
	}
	fmt.Fprintf(&b, "1. Findings are suggestive of %s.", strings.ReplaceAll(strings.Join(abnormal, ", "), "_", " "))
	if cat := req.Validation.MatchCategory; cat != "" && cat != "Unknown" && cat != "General Observation" {
		fmt.Fprintf(&b, "\n2. Semantic category: %s.", cat)
		b.WriteString("\n3. Further clinical correlation is recommended.")
	} else {
		b.WriteString("\n2. Further clinical correlation is recommended.")
	}
	return b.String()
}
