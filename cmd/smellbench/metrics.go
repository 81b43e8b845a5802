// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/smellbench/internal/model"
)

var (
	metricsOnce sync.Once

	findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "smellbench_findings_total",
		Help: "Findings emitted, partitioned by detector family and severity.",
	}, []string{"kind", "severity"})

	filesAnalyzed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "smellbench_files_analyzed_total",
		Help: "Source files successfully parsed into the project model.",
	})
)

func initMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(findingsTotal, filesAnalyzed)
	})
}

// serveMetrics starts the optional Prometheus metrics endpoint and returns a
// function that shuts it down.
func serveMetrics(addr string, logger *slog.Logger) func() {
	initMetrics()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logger.Info("metrics.http.start", "addr", addr, "path", "/metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics.http.error", "err", err)
		}
	}()

	return func() {
		_ = srv.Shutdown(context.Background())
	}
}

// recordFindingMetrics tallies a finding batch into the process-wide
// counters. The counters are updated even when no --metrics-addr was
// requested; they then simply go unscraped.
func recordFindingMetrics(findings []model.Finding) {
	initMetrics()
	for _, f := range findings {
		findingsTotal.WithLabelValues(f.Kind.String(), f.Severity.String()).Inc()
	}
}
