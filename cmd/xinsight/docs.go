package main

// General API documentation for swaggo. Generate with `swag init -g cmd/xinsight/docs.go`.
//
// @title           X-Insight API
// @version         1.0
// @description     Chest X-ray analysis: multi-label classification, Grad-CAM heatmaps,
// @description     semantic validation and a synthesized radiology report.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
