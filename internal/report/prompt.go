package report

import (
	"fmt"
	"strings"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

const multiLabelSystem = "You are an expert radiologist AI. Synthesize the provided multi-label findings into a formal, professional radiology report. Use structured sections (FINDINGS, IMPRESSION). Discuss how the flagged conditions clinically relate to one another."

const binarySystem = "You are an expert radiologist AI. Your task is to synthesize provided data into a formal, professional radiology report. Use structured sections (FINDINGS, IMPRESSION) and do not use placeholders."

const multiLabelUser = `
Generate a formal radiology report for the following case:

### RADIOLOGICAL FINDINGS:
- Flagged Conditions: %s
- BioBERT Semantic Category: %s

Ensure you mention ALL flagged conditions in the findings section and provide a cohesive diagnostic impression.
You are evaluating a Chest X-Ray (CXR). Do not mention CT scans or MRIs.
`

const binaryUser = `
Here is an example of the required formal style:
---
### EXAMPLE INPUT:
- Prediction: Abnormal
- Confidence: 95.0%%
- BioBERT Validation: Validated: Pneumonia/Infection (Semantic Match: 0.88)
- Clinical Category: Pneumonia/Infection

### EXAMPLE OUTPUT:
FINDINGS:
The deep learning model analysis identifies an abnormal clinical pattern with a 95.0%% confidence level. Semantic analysis via BioBERT correlates these findings with high-risk infectious pathology, specifically suggestive of Pneumonia. The imaging study reveals focal opacification and increased interstitial markings consistent with the identified category. No evidence of pleural effusion or pneumothorax is noted at this time.

IMPRESSION:
Abnormal radiological findings identified with high statistical and semantic confidence. The pattern is highly suggestive of an infectious process (Pneumonia/Infection). Further clinical correlation and follow-up imaging are recommended to monitor treatment response.
---

Now, generate a formal report for the following new case:

### NEW CASE INPUT:
- Prediction: %s
- Confidence: %.1f%%
- BioBERT Validation: %s
- Clinical Category: %s
- Semantic Score: %.2f

### NEW CASE REPORT:
`

// Messages builds the system and user turns for req.
func Messages(req Request) []Message {
	if req.Binary {
		v := req.Validation
		return []Message{
			{Role: "system", Content: binarySystem},
			{Role: "user", Content: fmt.Sprintf(binaryUser, req.Prediction, req.Confidence*100, v.Status, v.MatchCategory, v.SemanticScore)},
		}
	}
	return []Message{
		{Role: "system", Content: multiLabelSystem},
		{Role: "user", Content: fmt.Sprintf(multiLabelUser, conditionsText(req), req.Validation.MatchCategory)},
	}
}

func conditionsText(req Request) string {
	parts := make([]string, 0, len(req.Findings))
	for _, f := range req.Findings {
		parts = append(parts, fmt.Sprintf("%s (%s confidence)", f.Condition, f.Confidence))
	}
	if len(parts) == 0 {
		return "No abnormalities detected."
	}
	return strings.Join(parts, ", ")
}

// Prompt flattens the chat turns into a single completion prompt for
// backends without a chat endpoint.
func Prompt(req Request) string {
	var b strings.Builder
	for _, m := range Messages(req) {
		b.WriteString("### ")
		b.WriteString(strings.ToUpper(m.Role[:1]) + m.Role[1:])
		b.WriteString(":\n")
		b.WriteString(strings.TrimSpace(m.Content))
		b.WriteString("\n\n")
	}
	b.WriteString("### Assistant:\n")
	return b.String()
}
