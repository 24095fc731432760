// Package metrics exposes run counters for Prometheus scraping through the
// daemon's /metrics endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"holesync/internal/domain"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holesync_runs_total",
		Help: "Completed reconciliation runs by trigger.",
	}, []string{"trigger"})

	entriesAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holesync_entries_added_total",
		Help: "Entries propagated to devices, by device and list type.",
	}, []string{"device", "list"})

	entryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holesync_entry_failures_total",
		Help: "Entries that could not be added, by device and list type.",
	}, []string{"device", "list"})

	devicesSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "holesync_devices_skipped_total",
		Help: "Devices excluded from a run because collection failed.",
	}, []string{"device"})

	lastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "holesync_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run.",
	})

	lastRunConverged = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "holesync_last_run_converged",
		Help: "1 when the last run reached every device without failures.",
	})
)

// ObserveRun records one finished run.
func ObserveRun(report *domain.RunReport) {
	runsTotal.WithLabelValues(report.Trigger).Inc()
	lastRunTimestamp.Set(float64(report.StartedAt.Unix()))

	if report.Converged() {
		lastRunConverged.Set(1)
	} else {
		lastRunConverged.Set(0)
	}

	for _, dev := range report.Devices {
		if dev.Skipped {
			devicesSkipped.WithLabelValues(string(dev.Device)).Inc()
			continue
		}
		for _, list := range dev.Lists {
			if n := len(list.Added); n > 0 {
				entriesAdded.WithLabelValues(string(dev.Device), list.List.String()).Add(float64(n))
			}
			if n := len(list.Failed); n > 0 {
				entryFailures.WithLabelValues(string(dev.Device), list.List.String()).Add(float64(n))
			}
		}
	}
}

// Handler returns the scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
