package analyzer

import (
	"context"
	"image"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"xinsight/internal/gradcam"
	"xinsight/internal/report"
	"xinsight/internal/semantic"
	"xinsight/internal/vision"
	"xinsight/pkg/types"
)

// heatmaps renders one overlay per flagged output index, keyed by label.
// A label whose overlay cannot be produced maps to nil.
func (a *Analyzer) heatmaps(log zerolog.Logger, base *image.RGBA, out *vision.Output, flagged []int) map[string]*string {
	defer observe(stageHeatmap, time.Now())
	results := make([]*string, len(flagged))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, k := range flagged {
		i, k := i, k
		g.Go(func() error {
			results[i] = a.render(log, a.table.Labels[k], k, base, out)
			return nil
		})
	}
	_ = g.Wait()
	hm := make(map[string]*string, len(flagged))
	for i, k := range flagged {
		hm[a.table.Labels[k]] = results[i]
	}
	return hm
}

// render produces the overlay for output k, or nil when it cannot.
func (a *Analyzer) render(log zerolog.Logger, label string, k int, base *image.RGBA, out *vision.Output) *string {
	if out.Activations == nil {
		log.Debug().Str("label", label).Msg("model exports no gradients; heatmap skipped")
		return nil
	}
	uri, err := gradcam.Render(base, out.Activations, out.Gradient(k))
	if err != nil {
		log.Warn().Err(err).Str("label", label).Int("index", k).Msg("heatmap failed")
		return nil
	}
	return &uri
}

// validate runs fn against the validator, or reports the knowledge base as
// uninitialized when validation is disabled.
func (a *Analyzer) validate(fn func(v *semantic.Validator) types.Validation) types.Validation {
	defer observe(stageValidation, time.Now())
	if a.validator == nil {
		return types.Validation{Status: "Knowledge base uninitialized", MatchCategory: "Unknown"}
	}
	return fn(a.validator)
}

// report never fails the analysis; errors fall back to the standard message.
func (a *Analyzer) report(ctx context.Context, log zerolog.Logger, req report.Request) string {
	defer observe(stageReport, time.Now())
	text, err := a.reporter.Generate(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("report generation failed")
		return report.FallbackText(req)
	}
	return text
}
