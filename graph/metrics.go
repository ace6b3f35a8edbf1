// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/secretflow/padflow/pkg/promutil"
)

type metrics struct {
	submitCounter *prometheus.CounterVec
	runningNodes  prometheus.Gauge
	pollDuration  prometheus.Histogram
}

func newMetrics(factory promutil.Factory) *metrics {
	return &metrics{
		submitCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "padflow",
				Subsystem: "graph",
				Name:      "node_submit_total",
				Help:      "Total number of graph node submissions to the job dispatcher.",
			}, []string{"result"}),
		runningNodes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "padflow",
				Subsystem: "graph",
				Name:      "running_nodes",
				Help:      "Number of graph nodes running in the last status poll.",
			}),
		pollDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "padflow",
				Subsystem: "graph",
				Name:      "poll_duration_seconds",
				Help:      "Bucketed histogram of the time spent refreshing all running graphs.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms~20s
			}),
	}
}
