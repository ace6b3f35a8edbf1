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

package kuscia

// Status codes of the authority's error catalog that padflow relies on.
const (
	CodeOK = 0
	// CodeRouteNotExist is answered by route delete when the route is already
	// absent.
	CodeRouteNotExist = 11404
	// CodeRouteExists is answered by route query for a route the
	// authority still keeps.
	CodeRouteExists = 11405
)

// Route creation constants.
const (
	AuthenticationToken = "Token"
	TokenGenMethodRSA   = "RSA-GEN"
	EndpointPortName    = "http"
	EndpointProtocol    = "HTTP"
)

// Route status strings reported by the authority.
const (
	RouteStatusPending   = "Pending"
	RouteStatusSucceeded = "Succeeded"
	RouteStatusFailed    = "Failed"
)

// NodeStatusReady is the status of a ready node instance of a domain.
const NodeStatusReady = "Ready"

// Status is the status part of every response.
type Status struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// IsOK returns whether the status reports success.
func (s *Status) IsOK() bool {
	return s != nil && s.Code == CodeOK
}

// TokenConfig configures token authentication of a route.
type TokenConfig struct {
	TokenGenMethod string `json:"token_gen_method"`
}

// EndpointPort is one port of a route endpoint.
type EndpointPort struct {
	Name     string `json:"name"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	IsTLS    bool   `json:"isTLS"`
}

// RouteEndpoint is the destination of a route.
type RouteEndpoint struct {
	Host  string         `json:"host"`
	Ports []EndpointPort `json:"ports"`
}

// CreateRouteRequest creates a route from Source to Destination.
type CreateRouteRequest struct {
	Source             string        `json:"source"`
	Destination        string        `json:"destination"`
	AuthenticationType string        `json:"authentication_type"`
	TokenConfig        *TokenConfig  `json:"token_config,omitempty"`
	Endpoint           RouteEndpoint `json:"endpoint"`
}

// RouteStatus is the provisioning status of a route.
type RouteStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// QueryRouteData is the data part of a route query response.
type QueryRouteData struct {
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Status      RouteStatus `json:"status"`
}

// QueryRouteResponse is the response of a route query.
type QueryRouteResponse struct {
	Status Status          `json:"status"`
	Data   *QueryRouteData `json:"data,omitempty"`
}

type routeKey struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type domainQueryRequest struct {
	DomainID string `json:"domain_id"`
}

type nodeStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type domainQueryData struct {
	DomainID     string       `json:"domain_id"`
	NodeStatuses []nodeStatus `json:"node_statuses"`
}

type jobTask struct {
	TaskID          string `json:"task_id"`
	Alias           string `json:"alias"`
	TaskInputConfig string `json:"task_input_config"`
}

type createJobRequest struct {
	JobID          string    `json:"job_id"`
	MaxParallelism int       `json:"max_parallelism"`
	Tasks          []jobTask `json:"tasks"`
}

type jobIDRequest struct {
	JobID string `json:"job_id"`
}

type jobStatusDetail struct {
	State  string `json:"state"`
	ErrMsg string `json:"err_msg,omitempty"`
}

type queryJobData struct {
	JobID  string          `json:"job_id"`
	Status jobStatusDetail `json:"status"`
}

// DataRef locates one part of a DistData held by a party.
type DataRef struct {
	URI    string `json:"uri"`
	Party  string `json:"party"`
	Format string `json:"format,omitempty"`
}

// DistData is one output of a job, e.g. a table split over parties or a
// trained model.
type DistData struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	DataRefs []DataRef `json:"data_refs"`
}

type jobOutputData struct {
	JobID   string     `json:"job_id"`
	Outputs []DistData `json:"outputs"`
}

type jobLogData struct {
	JobID string   `json:"job_id"`
	Logs  []string `json:"logs"`
}

// envelope is the response envelope of every api.
type envelope[T any] struct {
	Status Status `json:"status"`
	Data   *T     `json:"data,omitempty"`
}
