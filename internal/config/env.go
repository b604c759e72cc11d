package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"xinsight/internal/common/fsutil"
)

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. With no arguments it loads
// ./.env when present.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if !fsutil.PathExists(".env") {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files %v: %w", files, err)
	}
	return nil
}

// ApplyEnv overlays XINSIGHT_* variables and the well-known secrets onto cfg.
func ApplyEnv(cfg *Config) {
	cfg.Addr = envStr("XINSIGHT_ADDR", cfg.Addr)
	if p := os.Getenv("PORT"); p != "" && os.Getenv("XINSIGHT_ADDR") == "" {
		cfg.Addr = ":" + p
	}
	cfg.ModelPath = envStr("XINSIGHT_MODEL_PATH", cfg.ModelPath)
	cfg.ModelID = envStr("XINSIGHT_MODEL_ID", cfg.ModelID)
	cfg.MetadataPath = envStr("XINSIGHT_METADATA_PATH", cfg.MetadataPath)
	cfg.OrtLibraryPath = envStr("XINSIGHT_ORT_LIBRARY", envStr("ONNXRUNTIME_SHARED_LIBRARY_PATH", cfg.OrtLibraryPath))
	cfg.MaxUploadMB = envInt("XINSIGHT_MAX_UPLOAD_MB", cfg.MaxUploadMB)
	cfg.RequestTimeoutSeconds = envInt("XINSIGHT_REQUEST_TIMEOUT_SECONDS", cfg.RequestTimeoutSeconds)

	cfg.CORS.Enabled = envBool("XINSIGHT_CORS_ENABLED", cfg.CORS.Enabled)
	if v := os.Getenv("XINSIGHT_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = SplitCSV(v)
	}

	cfg.Log.Level = envStr("XINSIGHT_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envStr("XINSIGHT_LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Requests = envStr("XINSIGHT_LOG_REQUESTS", cfg.Log.Requests)

	cfg.Embedding.Provider = envStr("XINSIGHT_EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.BaseURL = envStr("XINSIGHT_EMBEDDING_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.Model = envStr("XINSIGHT_EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Token = envStr("HF_TOKEN", cfg.Embedding.Token)
	cfg.Embedding.Threshold = envFloat("XINSIGHT_EMBEDDING_THRESHOLD", cfg.Embedding.Threshold)

	cfg.Report.Provider = envStr("XINSIGHT_REPORT_PROVIDER", cfg.Report.Provider)
	cfg.Report.BaseURL = envStr("XINSIGHT_REPORT_URL", cfg.Report.BaseURL)
	cfg.Report.Model = envStr("XINSIGHT_REPORT_MODEL", cfg.Report.Model)
	cfg.Report.APIKey = envStr("OPENAI_API_KEY", cfg.Report.APIKey)
	cfg.Report.LlamaModelPath = envStr("XINSIGHT_LLAMA_MODEL_PATH", cfg.Report.LlamaModelPath)
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empties.
func SplitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
