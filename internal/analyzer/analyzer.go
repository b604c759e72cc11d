// Package analyzer runs the full chest X-ray analysis: decode, classify,
// explain, validate and report.
package analyzer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"xinsight/internal/diagnosis"
	"xinsight/internal/report"
	"xinsight/internal/semantic"
	"xinsight/internal/vision"
	"xinsight/pkg/types"
)

// Options are the collaborators of an Analyzer. Nil Validator and Reporter
// disable those stages.
type Options struct {
	// Table is used when the model metadata does not list its classes.
	Table     diagnosis.Table
	Validator *semantic.Validator
	Reporter  report.Reporter
	Log       zerolog.Logger
}

// Analyzer is safe for concurrent use; the backbone serializes inference.
type Analyzer struct {
	backbone  vision.Backbone
	meta      vision.Metadata
	table     diagnosis.Table
	validator *semantic.Validator
	reporter  report.Reporter
	log       zerolog.Logger
}

// New builds an analyzer. backbone may be nil when the model failed to load;
// Analyze then returns ErrModelNotLoaded.
func New(backbone vision.Backbone, opts Options) (*Analyzer, error) {
	a := &Analyzer{
		backbone:  backbone,
		table:     opts.Table,
		validator: opts.Validator,
		reporter:  opts.Reporter,
		log:       opts.Log,
	}
	if a.reporter == nil {
		a.reporter = report.Nop{}
	}
	if a.table.Len() == 0 {
		a.table = diagnosis.DefaultTable()
	}
	if backbone == nil {
		return a, nil
	}
	a.meta = backbone.Metadata()
	if a.meta.Mode == vision.ModeBinary {
		return a, nil
	}
	if len(a.meta.Classes) > 0 {
		t, err := diagnosis.NewTable(a.meta.Classes, diagnosis.DefaultThresholds, a.meta.Thresholds)
		if err != nil {
			return nil, err
		}
		a.table = t
	}
	if n := a.meta.NumOutputs(); n != a.table.Len() {
		return nil, fmt.Errorf("model produces %d outputs but %d labels are configured", n, a.table.Len())
	}
	return a, nil
}

// Ready reports whether a model is loaded.
func (a *Analyzer) Ready() bool { return a.backbone != nil }

// Mode is the classification mode of the loaded model.
func (a *Analyzer) Mode() string {
	if a.meta.Mode == "" {
		return vision.ModeMultiLabel
	}
	return a.meta.Mode
}

// Labels describes the decision table.
func (a *Analyzer) Labels() types.LabelsResponse {
	if a.Mode() == vision.ModeBinary {
		rows := make([]types.LabelThreshold, 0, len(a.meta.BinaryLabels))
		for _, l := range a.meta.BinaryLabels {
			rows = append(rows, types.LabelThreshold{Label: l, Threshold: 0.5})
		}
		return types.LabelsResponse{Mode: vision.ModeBinary, Labels: rows}
	}
	return types.LabelsResponse{Mode: vision.ModeMultiLabel, Labels: a.table.Rows()}
}

// Analyze runs the pipeline on an uploaded image.
func (a *Analyzer) Analyze(ctx context.Context, data []byte) (types.PredictResult, error) {
	res, err := a.analyze(ctx, data)
	if err != nil {
		predictionsTotal.WithLabelValues("error").Inc()
		return res, err
	}
	return res, nil
}

func (a *Analyzer) analyze(ctx context.Context, data []byte) (types.PredictResult, error) {
	if a.backbone == nil {
		return types.PredictResult{}, ErrModelNotLoaded
	}
	start := time.Now()
	id := uuid.NewString()
	log := a.log.With().Str("analysis_id", id).Logger()

	t := time.Now()
	img, format, err := vision.Decode(data)
	if err != nil {
		return types.PredictResult{}, err
	}
	input, base, err := vision.Preprocess(img, a.meta.ImageSize, a.meta.Layout)
	if err != nil {
		return types.PredictResult{}, err
	}
	observe(stageDecode, t)
	log.Debug().Str("format", format).Int("width", img.Bounds().Dx()).Int("height", img.Bounds().Dy()).Msg("image decoded")

	t = time.Now()
	out, err := a.backbone.Forward(ctx, input)
	if err != nil {
		return types.PredictResult{}, fmt.Errorf("inference: %w", err)
	}
	observe(stageInference, t)

	if a.Mode() == vision.ModeBinary {
		return a.binary(ctx, log, id, start, base, out)
	}
	return a.multiLabel(ctx, log, id, start, base, out)
}

func (a *Analyzer) multiLabel(ctx context.Context, log zerolog.Logger, id string, start time.Time, base *image.RGBA, out *vision.Output) (types.PredictResult, error) {
	ev, err := diagnosis.EvaluateMultiLabel(a.table, out.Probabilities)
	if err != nil {
		return types.PredictResult{}, err
	}
	heatmaps := a.heatmaps(log, base, out, ev.Flagged)

	summary := diagnosis.Summary(ev.Findings)
	validation := a.validate(func(v *semantic.Validator) types.Validation { return v.Validate(ctx, summary) })

	text := a.report(ctx, log, report.Request{Findings: ev.Findings, Validation: validation})
	if err := ctx.Err(); err != nil {
		return types.PredictResult{}, fmt.Errorf("analysis aborted: %w", err)
	}

	predictionsTotal.WithLabelValues(ev.Status).Inc()
	if ev.Abnormal() {
		for _, f := range ev.Findings {
			findingsTotal.WithLabelValues(f.Condition).Inc()
		}
	}
	log.Info().Str("status", ev.Status).Str("findings", summary).Str("match", validation.MatchCategory).Msg("analysis complete")
	return types.PredictResult{MultiLabel: &types.MultiLabelResponse{
		AnalysisID:        id,
		PatientStatus:     ev.Status,
		FlaggedConditions: ev.Findings,
		MedicalValidation: validation,
		Heatmaps:          heatmaps,
		ReportText:        text,
		ProcessingMS:      time.Since(start).Milliseconds(),
	}}, nil
}

func (a *Analyzer) binary(ctx context.Context, log zerolog.Logger, id string, start time.Time, base *image.RGBA, out *vision.Output) (types.PredictResult, error) {
	if len(out.Probabilities) == 0 {
		return types.PredictResult{}, fmt.Errorf("model returned no output")
	}
	res, err := diagnosis.EvaluateBinary(out.Probabilities[0], a.meta.BinaryLabels)
	if err != nil {
		return types.PredictResult{}, err
	}
	resp := &types.BinaryResponse{AnalysisID: id, Prediction: res.Label, Confidence: res.Confidence}

	if a.validator != nil {
		v := a.validate(func(v *semantic.Validator) types.Validation { return v.ValidateBinary(ctx, res.Label, res.Confidence) })
		resp.MedicalValidation = &v
	}
	t := time.Now()
	resp.HeatmapImageBase64 = a.render(log, res.Label, 0, base, out)
	observe(stageHeatmap, t)

	req := report.Request{Binary: true, Prediction: res.Label, Confidence: res.Confidence}
	if resp.MedicalValidation != nil {
		req.Validation = *resp.MedicalValidation
	}
	resp.ReportText = a.report(ctx, log, req)
	if err := ctx.Err(); err != nil {
		return types.PredictResult{}, fmt.Errorf("analysis aborted: %w", err)
	}

	status := diagnosis.StatusNormal
	if res.Abnormal {
		status = diagnosis.StatusAbnormal
		findingsTotal.WithLabelValues(res.Label).Inc()
	}
	predictionsTotal.WithLabelValues(status).Inc()
	resp.ProcessingMS = time.Since(start).Milliseconds()
	log.Info().Str("prediction", res.Label).Float64("confidence", res.Confidence).Msg("analysis complete")
	return types.PredictResult{Binary: resp}, nil
}
