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
	"encoding/json"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/kuscia"
	"github.com/secretflow/padflow/pkg/orm/model"
)

// GraphNodeParam describes one component of a graph.
type GraphNodeParam struct {
	GraphNodeID string          `json:"graphNodeId"`
	Code        string          `json:"code"`
	Label       string          `json:"label,omitempty"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	NodeDef     json.RawMessage `json:"nodeDef,omitempty"`
}

// Validate implements validation.Validatable.
func (p GraphNodeParam) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.GraphNodeID, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Code, validation.Required, validation.Length(1, 128)),
	)
}

func (p *GraphNodeParam) toModel(projectID, graphID string) *model.GraphNode {
	return &model.GraphNode{
		ProjectID:   projectID,
		GraphID:     graphID,
		GraphNodeID: p.GraphNodeID,
		Code:        p.Code,
		Label:       p.Label,
		X:           p.X,
		Y:           p.Y,
		NodeDef:     p.NodeDef,
		Status:      graphModel.StatePending,
	}
}

// CreateGraphParam is the parameter of CreateGraph.
type CreateGraphParam struct {
	ProjectID string            `json:"projectId"`
	Name      string            `json:"name"`
	OwnerID   string            `json:"ownerId,omitempty"`
	Nodes     []*GraphNodeParam `json:"nodes,omitempty"`
	Edges     []graphModel.Edge `json:"edges,omitempty"`
}

// Validate checks the parameter.
func (p *CreateGraphParam) Validate() error {
	return wrapValidation(validation.ValidateStruct(p,
		validation.Field(&p.ProjectID, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Name, validation.Length(0, 256)),
		validation.Field(&p.Nodes, validation.Each(validation.NotNil)),
	))
}

// FullUpdateGraphParam replaces the nodes and edges of a graph.
type FullUpdateGraphParam struct {
	ProjectID string            `json:"projectId"`
	GraphID   string            `json:"graphId"`
	Nodes     []*GraphNodeParam `json:"nodes,omitempty"`
	Edges     []graphModel.Edge `json:"edges,omitempty"`
}

// Validate checks the parameter.
func (p *FullUpdateGraphParam) Validate() error {
	return wrapValidation(validation.ValidateStruct(p,
		validation.Field(&p.ProjectID, validation.Required),
		validation.Field(&p.GraphID, validation.Required),
		validation.Field(&p.Nodes, validation.Each(validation.NotNil)),
	))
}

func wrapValidation(err error) error {
	if err == nil {
		return nil
	}
	return errors.ErrInvalidArgument.GenWithStackByArgs(err.Error())
}

func topologyOf(nodeIDs []string, edges []graphModel.Edge) *graphModel.Graph {
	return &graphModel.Graph{Nodes: nodeIDs, Edges: edges}
}

func paramNodeIDs(nodes []*GraphNodeParam) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.GraphNodeID)
	}
	return ids
}

// NodeStatus is the execution status of one graph node.
type NodeStatus struct {
	GraphNodeID   string                    `json:"graphNodeId"`
	Status        graphModel.ExecutionState `json:"status"`
	JobHandle     string                    `json:"jobHandle,omitempty"`
	StopRequested bool                      `json:"stopRequested"`
	ErrMsg        string                    `json:"errMsg,omitempty"`
	// InPlan tells whether the node belongs to the latest started closure.
	InPlan bool `json:"inPlan"`
}

// GraphStatusView is a consistent snapshot of a graph's execution status.
type GraphStatusView struct {
	ProjectID string                 `json:"projectId"`
	GraphID   string                 `json:"graphId"`
	RunEpoch  int64                  `json:"runEpoch"`
	Status    graphModel.GraphStatus `json:"status"`
	Nodes     []*NodeStatus          `json:"nodes"`
}

// GraphDetail is a graph with its nodes.
type GraphDetail struct {
	Graph  *model.Graph           `json:"graph"`
	Nodes  []*model.GraphNode     `json:"nodes"`
	Status graphModel.GraphStatus `json:"status"`
}

// GraphNodeOutput is the output of the latest job of a graph node. Outputs
// stay empty until the job succeeded.
type GraphNodeOutput struct {
	GraphNodeID string                    `json:"graphNodeId"`
	Status      graphModel.ExecutionState `json:"status"`
	JobHandle   string                    `json:"jobHandle,omitempty"`
	Outputs     []kuscia.DistData         `json:"outputs"`
}

// GraphNodeLogs holds the log lines of the latest job of a graph node.
type GraphNodeLogs struct {
	GraphNodeID string                    `json:"graphNodeId"`
	Status      graphModel.ExecutionState `json:"status"`
	JobHandle   string                    `json:"jobHandle,omitempty"`
	Logs        []string                  `json:"logs"`
}
