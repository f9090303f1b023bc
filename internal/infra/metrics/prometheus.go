package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vfp_runs_total",
		Help: "Total number of pipeline runs, by result status code and error kind",
	}, []string{"status_code", "kind"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vfp_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfp_frames_extracted_total",
		Help: "Total number of frames extracted across all runs",
	})

	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vfp_active_runs",
		Help: "Number of pipeline runs currently in progress",
	})

	CleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vfp_cleanup_failures_total",
		Help: "Total number of scratch paths that could not be removed",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vfp_notifications_total",
		Help: "Notifications handed to delivery channels, by outcome and result",
	}, []string{"outcome", "result"})
)
