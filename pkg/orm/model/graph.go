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

package model

import (
	"database/sql/driver"
	"encoding/json"

	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/errors"
)

// EdgeList is the ordered edge list of a graph, stored as json.
type EdgeList []graphModel.Edge

// Value implements the driver.Valuer interface
func (l EdgeList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface
func (l *EdgeList) Scan(value interface{}) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*l = nil
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return errors.Trace(json.Unmarshal(b, l))
}

// Graph is a computation graph of a project. The graph owns its GraphNodes.
type Graph struct {
	Model
	ProjectID string   `json:"projectId" gorm:"column:project_id;type:varchar(64) not null;uniqueIndex:uidx_pg,priority:1"`
	GraphID   string   `json:"graphId" gorm:"column:graph_id;type:varchar(64) not null;uniqueIndex:uidx_pg,priority:2"`
	Name      string   `json:"name" gorm:"column:name;type:varchar(256) not null"`
	OwnerID   string   `json:"ownerId" gorm:"column:owner_id;type:varchar(64)"`
	Edges     EdgeList `json:"edges" gorm:"column:edges;type:blob"`
	// RunEpoch is the epoch of the latest start. Nodes stamped with the same
	// epoch form the current execution plan.
	RunEpoch int64 `json:"runEpoch" gorm:"column:run_epoch;type:bigint not null;default:0"`
}

// GraphNode is one component of a graph.
type GraphNode struct {
	Model
	ProjectID   string `json:"projectId" gorm:"column:project_id;type:varchar(64) not null;uniqueIndex:uidx_pgn,priority:1"`
	GraphID     string `json:"graphId" gorm:"column:graph_id;type:varchar(64) not null;uniqueIndex:uidx_pgn,priority:2"`
	GraphNodeID string `json:"graphNodeId" gorm:"column:graph_node_id;type:varchar(64) not null;uniqueIndex:uidx_pgn,priority:3"`
	// Code identifies the component, e.g. read_data/datatable.
	Code  string `json:"code" gorm:"column:code;type:varchar(128) not null"`
	Label string `json:"label" gorm:"column:label;type:varchar(256)"`
	X     int    `json:"x" gorm:"column:x;type:int"`
	Y     int    `json:"y" gorm:"column:y;type:int"`
	// NodeDef carries the serialized component definition, opaque to padflow.
	NodeDef []byte `json:"nodeDef" gorm:"column:node_def;type:blob"`

	Status        graphModel.ExecutionState `json:"status" gorm:"column:status;type:varchar(16) not null;index:idx_status"`
	JobHandle     string                    `json:"jobHandle" gorm:"column:job_handle;type:varchar(128)"`
	StopRequested bool                      `json:"stopRequested" gorm:"column:stop_requested"`
	ErrMsg        string                    `json:"errMsg" gorm:"column:err_msg;type:text"`
	RunEpoch      int64                     `json:"runEpoch" gorm:"column:run_epoch;type:bigint not null;default:0"`
}

// GraphNodeDefColumns are refreshed when a node definition is upserted.
var GraphNodeDefColumns = []string{
	"updated_at",
	"code",
	"label",
	"x",
	"y",
	"node_def",
}

// DefMap returns the definition columns of the node.
func (n *GraphNode) DefMap() KeyValueMap {
	return KeyValueMap{
		"code":     n.Code,
		"label":    n.Label,
		"x":        n.X,
		"y":        n.Y,
		"node_def": n.NodeDef,
	}
}
