package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"xinsight/internal/analyzer"
	"xinsight/internal/config"
	"xinsight/internal/registry"
	"xinsight/internal/report"
	"xinsight/internal/semantic"
	"xinsight/internal/vision"
)

// pipeline owns the analyzer and everything that must be released with it.
type pipeline struct {
	analyzer *analyzer.Analyzer
	closers  []func() error
}

func (p *pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// loadBackbone resolves and opens the configured model. Any failure is returned
// so serve can decide to keep running without a model.
func loadBackbone(cfg config.Config) (vision.Backbone, error) {
	file, err := registry.Resolve(cfg.ModelPath, cfg.ModelID)
	if err != nil {
		return nil, err
	}
	b, err := vision.Load(file, cfg.MetadataPath, cfg.OrtLibraryPath)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// buildPipeline wires model, knowledge base, validator and reporter. With
// requireModel false a model load failure is logged and the analyzer answers
// "Vision model is not loaded." instead.
func buildPipeline(ctx context.Context, cfg config.Config, log zerolog.Logger, requireModel bool) (*pipeline, error) {
	p := &pipeline{}
	fail := func(err error) (*pipeline, error) {
		_ = p.Close()
		return nil, err
	}

	backbone, err := loadBackbone(cfg)
	if err != nil {
		if requireModel {
			return fail(err)
		}
		log.Error().Err(err).Str("model_path", cfg.ModelPath).Msg("vision model not loaded")
	} else {
		p.closers = append(p.closers, backbone.Close, vision.ShutdownRuntime)
		meta := backbone.Metadata()
		log.Info().Str("mode", meta.Mode).Str("layout", meta.Layout).Int("image_size", meta.ImageSize).
			Bool("gradcam", meta.HasGradCAM()).Msg("vision model loaded")
	}

	validator, err := buildValidator(ctx, cfg, backbone, log)
	if err != nil {
		return fail(err)
	}

	reporter, closeReporter, err := report.FromConfig(cfg.Report, log.With().Str("component", "report").Logger())
	if err != nil {
		return fail(err)
	}
	p.closers = append(p.closers, closeReporter)

	a, err := analyzer.New(backbone, analyzer.Options{
		Validator: validator,
		Reporter:  reporter,
		Log:       log.With().Str("component", "analyzer").Logger(),
	})
	if err != nil {
		return fail(fmt.Errorf("analyzer: %w", err))
	}
	p.analyzer = a
	return p, nil
}

// buildValidator embeds the knowledge base matching the model's mode. A nil
// validator disables semantic validation.
func buildValidator(ctx context.Context, cfg config.Config, backbone vision.Backbone, log zerolog.Logger) (*semantic.Validator, error) {
	emb, err := semantic.FromConfig(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	if emb == nil {
		log.Info().Msg("semantic validation disabled")
		return nil, nil
	}
	entries := semantic.MultiLabelEntries()
	if backbone != nil && backbone.Metadata().Mode == vision.ModeBinary {
		entries = semantic.BinaryEntries()
	}
	kb := semantic.NewKnowledgeBase(entries)
	vlog := log.With().Str("component", "semantic").Str("provider", cfg.Embedding.Provider).Logger()
	kb.Warmup(ctx, emb, vlog)
	return semantic.NewValidator(kb, emb, cfg.Embedding.Threshold, vlog), nil
}
