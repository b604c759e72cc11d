package analyzer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xinsight",
			Name:      "predictions_total",
			Help:      "Completed analyses by patient status (Normal, Abnormal or error)",
		},
		[]string{"status"},
	)

	findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xinsight",
			Name:      "findings_total",
			Help:      "Flagged conditions across all analyses",
		},
		[]string{"condition"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xinsight",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each analysis stage in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(predictionsTotal, findingsTotal, stageDuration)
}

// Stage names used as metric labels.
const (
	stageDecode     = "decode"
	stageInference  = "inference"
	stageHeatmap    = "heatmap"
	stageValidation = "validation"
	stageReport     = "report"
)

// observe records the time since start for stage.
func observe(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
