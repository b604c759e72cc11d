package types

// Finding is one condition flagged by the classifier.
type Finding struct {
	// Condition label as known to the model.
	// example: Effusion
	Condition string `json:"condition" example:"Effusion"`
	// Human-readable confidence ("42.7%" or "High" for the normal fallback).
	// example: 42.7%
	Confidence string `json:"confidence" example:"42.7%"`
	// Raw sigmoid probability.
	// example: 0.427
	Probability float64 `json:"probability" example:"0.427"`
}

// Validation is the semantic cross-check of the findings against the knowledge base.
type Validation struct {
	// Outcome of the check.
	// example: Validated: Pleural Anomalies
	Status string `json:"status" example:"Validated: Pleural Anomalies"`
	// Best matching knowledge-base category.
	// example: Pleural Anomalies
	MatchCategory string `json:"match_category" example:"Pleural Anomalies"`
	// Cosine similarity of the best match.
	// example: 0.83
	SemanticScore float64 `json:"semantic_score" example:"0.83"`
}

// MultiLabelResponse is returned by POST /predict for multi-label models.
type MultiLabelResponse struct {
	// Unique id of this analysis.
	AnalysisID string `json:"analysis_id"`
	// Normal or Abnormal.
	// example: Abnormal
	PatientStatus string `json:"patient_status" example:"Abnormal"`
	// Flagged conditions ordered by probability, highest first.
	FlaggedConditions []Finding `json:"flagged_conditions"`
	// Semantic validation block.
	MedicalValidation Validation `json:"medical_validation"`
	// Grad-CAM overlays keyed by condition, as data URIs. A null value means the
	// heatmap could not be produced for that condition.
	Heatmaps map[string]*string `json:"heatmaps"`
	// Synthesized radiology report.
	ReportText string `json:"report_text"`
	// Wall time spent on the request in milliseconds.
	// example: 812
	ProcessingMS int64 `json:"processing_ms" example:"812"`
}

// BinaryResponse is returned by POST /predict for single-output (Normal/Abnormal) models.
type BinaryResponse struct {
	// Unique id of this analysis.
	AnalysisID string `json:"analysis_id"`
	// Predicted label.
	// example: Abnormal
	Prediction string `json:"prediction" example:"Abnormal"`
	// Confidence of the predicted label in [0.5, 1].
	// example: 0.93
	Confidence float64 `json:"confidence" example:"0.93"`
	// Semantic validation block, omitted when validation is disabled.
	MedicalValidation *Validation `json:"medical_validation,omitempty"`
	// Grad-CAM overlay as a data URI, null when unavailable.
	HeatmapImageBase64 *string `json:"heatmap_image_base64"`
	// Synthesized radiology report, omitted when reporting is disabled.
	ReportText string `json:"report_text,omitempty"`
	// Wall time spent on the request in milliseconds.
	ProcessingMS int64 `json:"processing_ms"`
}

// PredictResult carries exactly one of the two response shapes.
type PredictResult struct {
	MultiLabel *MultiLabelResponse
	Binary     *BinaryResponse
}

// Body returns the value that should be serialized to the client.
func (r PredictResult) Body() any {
	if r.Binary != nil {
		return r.Binary
	}
	return r.MultiLabel
}

// LabelThreshold is one row of the decision table.
type LabelThreshold struct {
	Label     string  `json:"label" example:"Cardiomegaly"`
	Threshold float32 `json:"threshold" example:"0.21395917"`
}

// LabelsResponse is returned by GET /labels.
type LabelsResponse struct {
	// Classification mode of the loaded model (multilabel or binary).
	// example: multilabel
	Mode   string           `json:"mode" example:"multilabel"`
	Labels []LabelThreshold `json:"labels"`
}

// MessageResponse is the static status payload returned by GET /.
type MessageResponse struct {
	// example: Multi-Label X-Insight API operational.
	Message string `json:"message" example:"Multi-Label X-Insight API operational."`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: No file part in the request.
	Error string `json:"error" example:"No file part in the request."`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
