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

package noderoute

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/secretflow/padflow/pkg/promutil"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

type metrics struct {
	operationCounter *prometheus.CounterVec
	remoteDuration   *prometheus.HistogramVec
}

func newMetrics(factory promutil.Factory) *metrics {
	return &metrics{
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "padflow",
				Subsystem: "noderoute",
				Name:      "operation_total",
				Help:      "Total number of node route operations.",
			}, []string{"op", "result"}),
		remoteDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "padflow",
				Subsystem: "noderoute",
				Name:      "remote_duration_seconds",
				Help:      "Bucketed histogram of remote authority call duration (s).",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
			}, []string{"op"}),
	}
}

func (m *metrics) observeOperation(op string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.operationCounter.WithLabelValues(op, result).Inc()
}

func (m *metrics) observeRemote(op string, start time.Time) {
	m.remoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
