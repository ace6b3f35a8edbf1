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

package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/secretflow/padflow/graph"
	"github.com/secretflow/padflow/manager/noderoute"
	"github.com/secretflow/padflow/pkg/errors"
)

// Status is the status part of every response.
type Status struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Response is the envelope of every response. ErrorCode carries the RFC code
// of a failed request, e.g. PADFLOW:ErrRouteNotFound.
type Response struct {
	Status    Status      `json:"status"`
	ErrorCode string      `json:"errorCode,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func newResponse(data interface{}) *Response {
	return &Response{Data: data}
}

func newErrorResponse(status int, err error) *Response {
	code, ok := errors.RFCCode(err)
	if !ok {
		code = errors.ErrUnknown.RFCCode()
	}
	return &Response{
		Status:    Status{Code: status, Msg: err.Error()},
		ErrorCode: string(code),
	}
}

// NodeIDRequest selects a node.
type NodeIDRequest struct {
	NodeID string `json:"nodeId"`
}

// Validate implements validation.Validatable.
func (r NodeIDRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NodeID, validation.Required),
	)
}

// CreateNodeRouteRequest creates a node route. CheckExisting defaults to
// true.
type CreateNodeRouteRequest struct {
	noderoute.CreateNodeRouteParam
	CheckExisting *bool `json:"checkExisting,omitempty"`
}

func (r *CreateNodeRouteRequest) checkExisting() bool {
	return r.CheckExisting == nil || *r.CheckExisting
}

// RouteRequest selects a route by id, or by its source and destination when
// the id is zero.
type RouteRequest struct {
	RouteID   int64  `json:"routeId,omitempty"`
	SrcNodeID string `json:"srcNodeId,omitempty"`
	DstNodeID string `json:"dstNodeId,omitempty"`
}

// Validate implements validation.Validatable.
func (r RouteRequest) Validate() error {
	if r.RouteID > 0 {
		return nil
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.SrcNodeID, validation.Required),
		validation.Field(&r.DstNodeID, validation.Required),
	)
}

// ProjectRequest selects the graphs of a project.
type ProjectRequest struct {
	ProjectID string `json:"projectId"`
}

// Validate implements validation.Validatable.
func (r ProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProjectID, validation.Required),
	)
}

// GraphRequest selects a graph.
type GraphRequest struct {
	ProjectID string `json:"projectId"`
	GraphID   string `json:"graphId"`
}

// Validate implements validation.Validatable.
func (r GraphRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ProjectID, validation.Required),
		validation.Field(&r.GraphID, validation.Required),
	)
}

// UpdateGraphMetaRequest renames a graph.
type UpdateGraphMetaRequest struct {
	GraphRequest
	Name string `json:"name"`
}

// UpdateGraphNodeRequest updates the definition of one graph node.
type UpdateGraphNodeRequest struct {
	GraphRequest
	Node *graph.GraphNodeParam `json:"node"`
}

// GraphNodeRequest selects one node of a graph.
type GraphNodeRequest struct {
	GraphRequest
	GraphNodeID string `json:"graphNodeId"`
}

// Validate implements validation.Validatable.
func (r GraphNodeRequest) Validate() error {
	if err := r.GraphRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.GraphNodeID, validation.Required),
	)
}

// GraphNodesRequest selects nodes of a graph, all nodes when Nodes is empty.
type GraphNodesRequest struct {
	GraphRequest
	Nodes []string `json:"nodes,omitempty"`
}

// CreateGraphResponse is the data of a created graph.
type CreateGraphResponse struct {
	GraphID string `json:"graphId"`
}

// CreateNodeRouteResponse is the data of a created route.
type CreateNodeRouteResponse struct {
	RouteID int64 `json:"routeId"`
}

// NodeRouteStatusResponse is the data of a route status query.
type NodeRouteStatusResponse struct {
	Status noderoute.RouteStatus `json:"status"`
}

// BoolResponse is the data of a ready or exists check.
type BoolResponse struct {
	Result bool `json:"result"`
}

// LogLevelRequest changes the log level of the master.
type LogLevelRequest struct {
	Level string `json:"level"`
}

// Validate implements validation.Validatable.
func (r LogLevelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Level, validation.Required,
			validation.In("debug", "info", "warn", "error", "dpanic", "panic", "fatal")),
	)
}
