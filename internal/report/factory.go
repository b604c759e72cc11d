package report

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"xinsight/internal/config"
)

// FromConfig builds the configured reporter wrapped in a Fallback. The returned
// close function releases in-process models and is never nil.
func FromConfig(cfg config.ReportConfig, log zerolog.Logger) (Reporter, func() error, error) {
	noClose := func() error { return nil }
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	var r Reporter
	switch cfg.Provider {
	case config.ReportOpenAI:
		r = NewChatReporter(ChatOptions{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     timeout,
		})
	case config.ReportLlamaServer:
		r = NewLlamaServerReporter(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.MaxTokens, cfg.Temperature, timeout, 5*time.Second, log)
	case config.ReportLlama:
		lr, err := NewLlamaReporter(cfg.LlamaModelPath, cfg.LlamaContext, cfg.LlamaThreads, cfg.MaxTokens, cfg.Temperature)
		if err != nil {
			return nil, noClose, fmt.Errorf("llama reporter: %w", err)
		}
		return WithFallback(lr, log), lr.Close, nil
	case config.ReportTemplate:
		r = TemplateReporter{}
	case config.ReportNone, "":
		return Nop{}, noClose, nil
	default:
		return nil, noClose, fmt.Errorf("unknown report provider %q", cfg.Provider)
	}
	return WithFallback(r, log), noClose, nil
}
