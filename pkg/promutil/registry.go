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

package promutil

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a prometheus registry.
type Registry struct {
	*prometheus.Registry
}

// NewRegistry returns a registry with the go and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Registry{Registry: reg}
}

// NewOnlyRegistry returns an empty registry, used by tests.
func NewOnlyRegistry() *Registry {
	return &Registry{Registry: prometheus.NewRegistry()}
}

// HTTPHandlerForMetric returns http.Handler for prometheus metric.
func HTTPHandlerForMetric(gather prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(
		gather,
		promhttp.HandlerOpts{},
	)
}
