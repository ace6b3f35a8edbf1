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

// ExecutionState is the execution state of a graph node.
type ExecutionState string

// ExecutionState values
const (
	StatePending   = ExecutionState("Pending")
	StateRunning   = ExecutionState("Running")
	StateSucceeded = ExecutionState("Succeeded")
	StateFailed    = ExecutionState("Failed")
	StateStopped   = ExecutionState("Stopped")
)

// IsTerminated returns whether the node will not change state without a new
// submission.
func (s ExecutionState) IsTerminated() bool {
	return s == StateSucceeded || s == StateFailed || s == StateStopped
}

// GraphStatus is the aggregated status of a graph.
type GraphStatus string

// GraphStatus values
const (
	GraphPending   = GraphStatus("Pending")
	GraphRunning   = GraphStatus("Running")
	GraphSucceeded = GraphStatus("Succeeded")
	GraphFailed    = GraphStatus("Failed")
)

// Edge is a directed dependency: Target consumes the outputs of Source.
// Anchors name the output and input ports on the canvas and are not
// interpreted here.
type Edge struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceAnchor string `json:"sourceAnchor,omitempty"`
	TargetAnchor string `json:"targetAnchor,omitempty"`
}

// Graph is the topology of a computation graph.
type Graph struct {
	Nodes []string
	Edges []Edge
}
