//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// apiDoc is registered with swag so the UI has a document even when
// `swag init` output is not linked in. Generated docs override it.
var apiDoc = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "X-Insight API",
	Description:      "Chest X-ray analysis: multi-label classification, Grad-CAM heatmaps, semantic validation and a synthesized radiology report.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	if swag.GetSwagger(apiDoc.InfoInstanceName) == nil {
		swag.Register(apiDoc.InstanceName(), apiDoc)
	}
}

// MountSwagger serves the Swagger UI under /swagger/.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

const docTemplate = `{
  "swagger": "2.0",
  "schemes": {{ marshal .Schemes }},
  "info": {"title": {{ printf "%q" .Title }}, "description": {{ printf "%q" .Description }}, "version": {{ printf "%q" .Version }}},
  "basePath": {{ printf "%q" .BasePath }},
  "paths": {
    "/": {"get": {"summary": "Service banner", "produces": ["application/json"],
      "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/MessageResponse"}}}}},
    "/predict": {"post": {"summary": "Analyze a chest X-ray", "consumes": ["multipart/form-data"], "produces": ["application/json"],
      "parameters": [{"name": "file", "in": "formData", "type": "file", "required": true, "description": "X-ray image (PNG, JPEG, BMP, TIFF, WebP, GIF)"}],
      "responses": {
        "200": {"description": "Multi-label or binary analysis", "schema": {"$ref": "#/definitions/MultiLabelResponse"}},
        "400": {"description": "Missing or undecodable upload", "schema": {"$ref": "#/definitions/ErrorResponse"}},
        "413": {"description": "Upload too large", "schema": {"$ref": "#/definitions/ErrorResponse"}},
        "500": {"description": "Model not loaded or inference failure", "schema": {"$ref": "#/definitions/ErrorResponse"}},
        "503": {"description": "Runtime dependency unavailable", "schema": {"$ref": "#/definitions/ErrorResponse"}}}}},
    "/labels": {"get": {"summary": "Decision thresholds", "produces": ["application/json"],
      "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LabelsResponse"}}}}},
    "/healthz": {"get": {"summary": "Liveness", "responses": {"200": {"description": "ok"}}}},
    "/readyz": {"get": {"summary": "Readiness", "responses": {"200": {"description": "ready"}, "503": {"description": "loading"}}}}
  },
  "definitions": {
    "MessageResponse": {"type": "object", "properties": {"message": {"type": "string"}}},
    "ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}},
    "Finding": {"type": "object", "properties": {"condition": {"type": "string"}, "confidence": {"type": "string"}, "probability": {"type": "number"}}},
    "Validation": {"type": "object", "properties": {"status": {"type": "string"}, "match_category": {"type": "string"}, "semantic_score": {"type": "number"}}},
    "MultiLabelResponse": {"type": "object", "properties": {
      "analysis_id": {"type": "string"}, "patient_status": {"type": "string"},
      "flagged_conditions": {"type": "array", "items": {"$ref": "#/definitions/Finding"}},
      "medical_validation": {"$ref": "#/definitions/Validation"},
      "heatmaps": {"type": "object", "additionalProperties": {"type": "string"}},
      "report_text": {"type": "string"}, "processing_ms": {"type": "integer"}}},
    "LabelThreshold": {"type": "object", "properties": {"label": {"type": "string"}, "threshold": {"type": "number"}}},
    "LabelsResponse": {"type": "object", "properties": {"mode": {"type": "string"}, "labels": {"type": "array", "items": {"$ref": "#/definitions/LabelThreshold"}}}}
  }
}`
