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
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pingcap/log"
	"github.com/secretflow/padflow/graph"
	"github.com/secretflow/padflow/manager/node"
	"github.com/secretflow/padflow/manager/noderoute"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/logutil"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// OpenAPI provides the padflow APIs.
type OpenAPI struct {
	nodes  node.Manager
	routes noderoute.Manager
	graphs graph.Manager
}

// NewOpenAPI creates a new OpenAPI.
func NewOpenAPI(nodes node.Manager, routes noderoute.Manager, graphs graph.Manager) *OpenAPI {
	return &OpenAPI{nodes: nodes, routes: routes, graphs: graphs}
}

// RegisterOpenAPIRoutes registers routes for OpenAPI. All APIs are POST with
// a JSON body.
func RegisterOpenAPIRoutes(router *gin.Engine, api *OpenAPI, ready *atomic.Bool) {
	v1 := router.Group("/api/v1alpha1")
	v1.Use(CheckServerReadyMiddleware(ready))
	v1.Use(LogMiddleware())
	v1.Use(ErrorHandleMiddleware())

	nodeGroup := v1.Group("/node")
	nodeGroup.POST("/get", api.GetNode)
	nodeGroup.POST("/list", api.ListNodes)
	nodeGroup.POST("/create", api.CreateNode)
	nodeGroup.POST("/delete", api.DeleteNode)

	routeGroup := v1.Group("/noderoute")
	routeGroup.POST("/create", api.CreateNodeRoute)
	routeGroup.POST("/delete", api.DeleteNodeRoute)
	routeGroup.POST("/update", api.UpdateNodeRoute)
	routeGroup.POST("/get", api.GetNodeRoute)
	routeGroup.POST("/list", api.ListNodeRoutes)
	routeGroup.POST("/status", api.GetNodeRouteStatus)
	routeGroup.POST("/ready", api.CheckNodeRouteReady)
	routeGroup.POST("/exists", api.CheckNodeRouteExists)

	graphGroup := v1.Group("/graph")
	graphGroup.POST("/create", api.CreateGraph)
	graphGroup.POST("/delete", api.DeleteGraph)
	graphGroup.POST("/list", api.ListGraphs)
	graphGroup.POST("/detail", api.GetGraphDetail)
	graphGroup.POST("/meta/update", api.UpdateGraphMeta)
	graphGroup.POST("/update", api.FullUpdateGraph)
	graphGroup.POST("/node/update", api.UpdateGraphNode)
	graphGroup.POST("/start", api.StartGraph)
	graphGroup.POST("/stop", api.StopGraph)
	graphGroup.POST("/node/status", api.ListGraphNodeStatus)
	graphGroup.POST("/node/output", api.GetGraphNodeOutput)
	graphGroup.POST("/node/logs", api.GetGraphNodeLogs)

	v1.POST("/log/level", api.SetLogLevel)
}

// bindJSON decodes and validates the request body. On failure the error is
// recorded on c and false is returned.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "malformed request body"))
		return false
	}
	v, ok := req.(validation.Validatable)
	if !ok {
		return true
	}
	if err := v.Validate(); err != nil {
		if _, typed := errors.RFCCode(err); !typed {
			err = errors.ErrInvalidArgument.GenWithStackByArgs(err.Error())
		}
		_ = c.Error(err)
		return false
	}
	return true
}

func writeData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, newResponse(data))
}

// GetNode gets a node.
// @Router /api/v1alpha1/node/get [post]
func (o *OpenAPI) GetNode(c *gin.Context) {
	var req NodeIDRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := o.nodes.GetNode(c.Request.Context(), req.NodeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, n)
}

// ListNodes lists all nodes.
// @Router /api/v1alpha1/node/list [post]
func (o *OpenAPI) ListNodes(c *gin.Context) {
	nodes, err := o.nodes.ListNodes(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nodes)
}

// CreateNode registers a node.
// @Router /api/v1alpha1/node/create [post]
func (o *OpenAPI) CreateNode(c *gin.Context) {
	var req node.CreateNodeParam
	if !bindJSON(c, &req) {
		return
	}
	if err := o.nodes.CreateNode(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, NodeIDRequest{NodeID: req.NodeID})
}

// DeleteNode deletes a node.
// @Router /api/v1alpha1/node/delete [post]
func (o *OpenAPI) DeleteNode(c *gin.Context) {
	var req NodeIDRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := o.nodes.DeleteNode(c.Request.Context(), req.NodeID); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// CreateNodeRoute creates a half or full duplex route.
// @Router /api/v1alpha1/noderoute/create [post]
func (o *OpenAPI) CreateNodeRoute(c *gin.Context) {
	var req CreateNodeRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "malformed request body"))
		return
	}
	routeID, err := o.routes.CreateNodeRoute(c.Request.Context(), &req.CreateNodeRouteParam, req.checkExisting())
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, CreateNodeRouteResponse{RouteID: routeID})
}

// DeleteNodeRoute deletes a route by id, or by source and destination.
// @Router /api/v1alpha1/noderoute/delete [post]
func (o *OpenAPI) DeleteNodeRoute(c *gin.Context) {
	var req RouteRequest
	if !bindJSON(c, &req) {
		return
	}
	var err error
	if req.RouteID > 0 {
		err = o.routes.DeleteNodeRouteByID(c.Request.Context(), req.RouteID)
	} else {
		err = o.routes.DeleteNodeRoute(c.Request.Context(), req.SrcNodeID, req.DstNodeID)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// UpdateNodeRoute changes the addresses of a route.
// @Router /api/v1alpha1/noderoute/update [post]
func (o *OpenAPI) UpdateNodeRoute(c *gin.Context) {
	var req noderoute.UpdateNodeRouteParam
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "malformed request body"))
		return
	}
	if err := o.routes.UpdateNodeRoute(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// GetNodeRoute gets a route by id.
// @Router /api/v1alpha1/noderoute/get [post]
func (o *OpenAPI) GetNodeRoute(c *gin.Context) {
	var req RouteRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.RouteID <= 0 {
		_ = c.Error(errors.ErrInvalidArgument.GenWithStackByArgs("routeId is required"))
		return
	}
	route, err := o.routes.GetNodeRoute(c.Request.Context(), req.RouteID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, route)
}

// ListNodeRoutes lists the routes starting from a node.
// @Router /api/v1alpha1/noderoute/list [post]
func (o *OpenAPI) ListNodeRoutes(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "malformed request body"))
		return
	}
	if req.SrcNodeID == "" {
		_ = c.Error(errors.ErrInvalidArgument.GenWithStackByArgs("srcNodeId is required"))
		return
	}
	routes, err := o.routes.ListNodeRoutesBySrc(c.Request.Context(), req.SrcNodeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, routes)
}

func bindRoutePair(c *gin.Context) (RouteRequest, bool) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "malformed request body"))
		return req, false
	}
	if req.SrcNodeID == "" || req.DstNodeID == "" {
		_ = c.Error(errors.ErrInvalidArgument.GenWithStackByArgs("srcNodeId and dstNodeId are required"))
		return req, false
	}
	return req, true
}

// GetNodeRouteStatus returns the remote status of a route.
// @Router /api/v1alpha1/noderoute/status [post]
func (o *OpenAPI) GetNodeRouteStatus(c *gin.Context) {
	req, valid := bindRoutePair(c)
	if !valid {
		return
	}
	status, err := o.routes.GetRouteStatus(c.Request.Context(), req.SrcNodeID, req.DstNodeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, NodeRouteStatusResponse{Status: status})
}

// CheckNodeRouteReady checks both directions of a route are up.
// @Router /api/v1alpha1/noderoute/ready [post]
func (o *OpenAPI) CheckNodeRouteReady(c *gin.Context) {
	req, valid := bindRoutePair(c)
	if !valid {
		return
	}
	ready, err := o.routes.CheckNodeRouteReady(c.Request.Context(), req.SrcNodeID, req.DstNodeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, BoolResponse{Result: ready})
}

// CheckNodeRouteExists checks the route exists on the remote authority.
// @Router /api/v1alpha1/noderoute/exists [post]
func (o *OpenAPI) CheckNodeRouteExists(c *gin.Context) {
	req, valid := bindRoutePair(c)
	if !valid {
		return
	}
	exists, err := o.routes.CheckNodeRouteExists(c.Request.Context(), req.SrcNodeID, req.DstNodeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, BoolResponse{Result: exists})
}

// CreateGraph creates a graph.
// @Router /api/v1alpha1/graph/create [post]
func (o *OpenAPI) CreateGraph(c *gin.Context) {
	var req graph.CreateGraphParam
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "malformed request body"))
		return
	}
	graphID, err := o.graphs.CreateGraph(c.Request.Context(), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, CreateGraphResponse{GraphID: graphID})
}

// DeleteGraph deletes an idle graph.
// @Router /api/v1alpha1/graph/delete [post]
func (o *OpenAPI) DeleteGraph(c *gin.Context) {
	var req GraphRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := o.graphs.DeleteGraph(c.Request.Context(), req.ProjectID, req.GraphID); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// ListGraphs lists the graphs of a project.
// @Router /api/v1alpha1/graph/list [post]
func (o *OpenAPI) ListGraphs(c *gin.Context) {
	var req ProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	graphs, err := o.graphs.ListGraphs(c.Request.Context(), req.ProjectID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, graphs)
}

// GetGraphDetail returns a graph with its nodes.
// @Router /api/v1alpha1/graph/detail [post]
func (o *OpenAPI) GetGraphDetail(c *gin.Context) {
	var req GraphRequest
	if !bindJSON(c, &req) {
		return
	}
	detail, err := o.graphs.GetGraphDetail(c.Request.Context(), req.ProjectID, req.GraphID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, detail)
}

// UpdateGraphMeta renames a graph.
// @Router /api/v1alpha1/graph/meta/update [post]
func (o *OpenAPI) UpdateGraphMeta(c *gin.Context) {
	var req UpdateGraphMetaRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := o.graphs.UpdateGraphMeta(c.Request.Context(), req.ProjectID, req.GraphID, req.Name); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// FullUpdateGraph replaces the nodes and edges of an idle graph.
// @Router /api/v1alpha1/graph/update [post]
func (o *OpenAPI) FullUpdateGraph(c *gin.Context) {
	var req graph.FullUpdateGraphParam
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "malformed request body"))
		return
	}
	if err := o.graphs.FullUpdateGraph(c.Request.Context(), &req); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// UpdateGraphNode updates the definition of one graph node.
// @Router /api/v1alpha1/graph/node/update [post]
func (o *OpenAPI) UpdateGraphNode(c *gin.Context) {
	var req UpdateGraphNodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := o.graphs.UpdateGraphNode(c.Request.Context(), req.ProjectID, req.GraphID, req.Node); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// StartGraph runs the given nodes and their dependencies.
// @Router /api/v1alpha1/graph/start [post]
func (o *OpenAPI) StartGraph(c *gin.Context) {
	var req GraphNodesRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := o.graphs.StartGraph(c.Request.Context(), req.ProjectID, req.GraphID, req.Nodes); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// StopGraph stops the given nodes.
// @Router /api/v1alpha1/graph/stop [post]
func (o *OpenAPI) StopGraph(c *gin.Context) {
	var req GraphNodesRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := o.graphs.StopGraph(c.Request.Context(), req.ProjectID, req.GraphID, req.Nodes); err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, nil)
}

// ListGraphNodeStatus returns a snapshot of the graph execution status.
// @Router /api/v1alpha1/graph/node/status [post]
func (o *OpenAPI) ListGraphNodeStatus(c *gin.Context) {
	var req GraphRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := o.graphs.ListGraphNodeStatus(c.Request.Context(), req.ProjectID, req.GraphID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, view)
}

// GetGraphNodeOutput returns the output of the latest job of a graph node.
// @Router /api/v1alpha1/graph/node/output [post]
func (o *OpenAPI) GetGraphNodeOutput(c *gin.Context) {
	var req GraphNodeRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := o.graphs.GetGraphNodeOutput(c.Request.Context(), req.ProjectID, req.GraphID, req.GraphNodeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, out)
}

// GetGraphNodeLogs returns the logs of the latest job of a graph node.
// @Router /api/v1alpha1/graph/node/logs [post]
func (o *OpenAPI) GetGraphNodeLogs(c *gin.Context) {
	var req GraphNodeRequest
	if !bindJSON(c, &req) {
		return
	}
	logs, err := o.graphs.GetGraphNodeLogs(c.Request.Context(), req.ProjectID, req.GraphID, req.GraphNodeID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	writeData(c, logs)
}

// SetLogLevel changes the log level dynamically.
// @Router /api/v1alpha1/log/level [post]
func (o *OpenAPI) SetLogLevel(c *gin.Context) {
	var req LogLevelRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := logutil.SetLogLevel(req.Level); err != nil {
		_ = c.Error(errors.WrapError(errors.ErrInvalidArgument, err, "log level "+req.Level))
		return
	}
	log.Warn("log level changed", zap.String("level", req.Level))
	writeData(c, nil)
}
