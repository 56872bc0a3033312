package adapters

import (
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/prometheus/client_golang/prometheus"

	"artycleaner/internal/ports"
	"artycleaner/internal/types"
)

const metricsNamespace = "artycleaner"

// MetricsTextfileAdapter writes the run report as a Prometheus textfile for
// the node-exporter textfile collector.
type MetricsTextfileAdapter struct {
	Path string

	registry      *prometheus.Registry
	candidates    *prometheus.GaugeVec
	deleted       *prometheus.GaugeVec
	failures      *prometheus.GaugeVec
	skippedImages *prometheus.GaugeVec
	lastRun       prometheus.Gauge
	dryRun        prometheus.Gauge
}

func NewMetricsTextfileAdapter(path string) *MetricsTextfileAdapter {
	labels := []string{"repo", "package_type"}
	adapter := &MetricsTextfileAdapter{
		Path:     path,
		registry: prometheus.NewRegistry(),
		candidates: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "candidates",
			Help:      "Artifacts considered for deletion in the last run.",
		}, labels),
		deleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "deleted",
			Help:      "Artifacts deleted (or selected, in dry-run) in the last run.",
		}, labels),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "delete_failures",
			Help:      "Deletions that failed in the last run.",
		}, labels),
		skippedImages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "skipped_images",
			Help:      "Docker images skipped because keep_tags could not be met or their tags could not be read.",
		}, labels),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		dryRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "dry_run",
			Help:      "1 when the last run did not delete anything by request.",
		}),
	}
	adapter.registry.MustRegister(
		adapter.candidates,
		adapter.deleted,
		adapter.failures,
		adapter.skippedImages,
		adapter.lastRun,
		adapter.dryRun,
	)
	return adapter
}

func (a *MetricsTextfileAdapter) WriteReport(report types.RunReport) error {
	if a.Path == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("metrics file path is empty")
	}
	a.candidates.Reset()
	a.deleted.Reset()
	a.failures.Reset()
	a.skippedImages.Reset()
	for _, repo := range report.Repositories {
		labels := prometheus.Labels{"repo": repo.Key, "package_type": string(repo.PackageType)}
		a.candidates.With(labels).Set(float64(repo.Candidates))
		a.deleted.With(labels).Set(float64(repo.Deleted))
		a.failures.With(labels).Set(float64(repo.Failed))
		a.skippedImages.With(labels).Set(float64(repo.SkippedImages))
	}
	finished := report.FinishedAt
	if !finished.IsZero() {
		a.lastRun.Set(float64(finished.Unix()))
	}
	if report.DryRun {
		a.dryRun.Set(1)
	} else {
		a.dryRun.Set(0)
	}

	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create metrics directory").
			WithCause(err)
	}
	if err := prometheus.WriteToTextfile(a.Path, a.registry); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write metrics file").
			WithCause(err)
	}
	return nil
}

var _ ports.MetricsPort = (*MetricsTextfileAdapter)(nil)
