package config

import (
	"fmt"
	"time"
)

// Embedding providers.
const (
	EmbeddingHuggingFace = "huggingface"
	EmbeddingOpenAI      = "openai"
	EmbeddingNone        = "none"
)

// Report providers.
const (
	ReportOpenAI      = "openai"
	ReportLlamaServer = "llama-server"
	ReportLlama       = "llama"
	ReportTemplate    = "template"
	ReportNone        = "none"
)

// Config holds runtime parameters for the service.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// ModelPath is an .onnx file or a directory scanned for one.
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	// ModelID selects a model by file name when ModelPath is a directory.
	ModelID string `json:"model_id" yaml:"model_id" toml:"model_id"`
	// MetadataPath defaults to the JSON sidecar next to the model.
	MetadataPath string `json:"metadata_path" yaml:"metadata_path" toml:"metadata_path"`
	// OrtLibraryPath points at libonnxruntime; empty uses the loader default.
	OrtLibraryPath        string `json:"ort_library_path" yaml:"ort_library_path" toml:"ort_library_path"`
	MaxUploadMB           int    `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`

	CORS      CORSConfig      `json:"cors" yaml:"cors" toml:"cors"`
	Log       LogConfig       `json:"log" yaml:"log" toml:"log"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" toml:"embedding"`
	Report    ReportConfig    `json:"report" yaml:"report" toml:"report"`
}

type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

type LogConfig struct {
	// Level: debug|info|warn|error
	Level string `json:"level" yaml:"level" toml:"level"`
	// Format: console|json
	Format string `json:"format" yaml:"format" toml:"format"`
	// Requests is the per-request log level: off|error|info|debug
	Requests string `json:"requests" yaml:"requests" toml:"requests"`
}

type EmbeddingConfig struct {
	Provider string `json:"provider" yaml:"provider" toml:"provider"`
	BaseURL  string `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model    string `json:"model" yaml:"model" toml:"model"`
	// Token is usually supplied through HF_TOKEN.
	Token          string  `json:"token" yaml:"token" toml:"token"`
	Threshold      float64 `json:"threshold" yaml:"threshold" toml:"threshold"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type ReportConfig struct {
	Provider string `json:"provider" yaml:"provider" toml:"provider"`
	BaseURL  string `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model    string `json:"model" yaml:"model" toml:"model"`
	// APIKey is usually supplied through OPENAI_API_KEY.
	APIKey         string  `json:"api_key" yaml:"api_key" toml:"api_key"`
	MaxTokens      int     `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature    float32 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
	// In-process llama.cpp settings (binaries built with -tags=llama).
	LlamaModelPath string `json:"llama_model_path" yaml:"llama_model_path" toml:"llama_model_path"`
	LlamaContext   int    `json:"llama_context" yaml:"llama_context" toml:"llama_context"`
	LlamaThreads   int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:                  ":8000",
		ModelPath:             "models/densenet121_chestxray.onnx",
		MaxUploadMB:           20,
		RequestTimeoutSeconds: 300,
		CORS: CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		},
		Log: LogConfig{Level: "info", Format: "console", Requests: "info"},
		Embedding: EmbeddingConfig{
			Provider:       EmbeddingHuggingFace,
			BaseURL:        "https://router.huggingface.co/hf-inference",
			Model:          "dmis-lab/biobert-v1.1",
			Threshold:      0.65,
			TimeoutSeconds: 30,
		},
		Report: ReportConfig{
			Provider:       ReportOpenAI,
			BaseURL:        "http://localhost:11434/v1",
			Model:          "llama3.2:1b",
			MaxTokens:      768,
			Temperature:    0.2,
			TimeoutSeconds: 180,
			LlamaContext:   4096,
			LlamaThreads:   4,
		},
	}
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// RequestTimeout returns the per-request deadline, zero when disabled.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative")
	}
	switch c.Embedding.Provider {
	case EmbeddingHuggingFace, EmbeddingOpenAI, EmbeddingNone:
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Threshold < 0 || c.Embedding.Threshold > 1 {
		return fmt.Errorf("embedding threshold must be within [0,1], got %v", c.Embedding.Threshold)
	}
	switch c.Report.Provider {
	case ReportOpenAI, ReportLlamaServer, ReportLlama, ReportTemplate, ReportNone:
	default:
		return fmt.Errorf("unknown report provider %q", c.Report.Provider)
	}
	if c.Report.Provider == ReportLlama && c.Report.LlamaModelPath == "" {
		return fmt.Errorf("report.llama_model_path is required for the llama provider")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
