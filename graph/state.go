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
	"sort"
	"sync"

	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/kuscia"
	"github.com/secretflow/padflow/pkg/orm/model"
)

type graphKey struct {
	projectID string
	graphID   string
}

func (k graphKey) String() string {
	return k.projectID + "/" + k.graphID
}

type nodeState struct {
	status        graphModel.ExecutionState
	handle        kuscia.JobHandle
	stopRequested bool
	errMsg        string
	runEpoch      int64
}

func nodeStateOf(n *model.GraphNode) nodeState {
	status := n.Status
	if status == "" {
		status = graphModel.StatePending
	}
	return nodeState{
		status:        status,
		handle:        kuscia.JobHandle(n.JobHandle),
		stopRequested: n.StopRequested,
		errMsg:        n.ErrMsg,
		runEpoch:      n.RunEpoch,
	}
}

func (s nodeState) values() model.KeyValueMap {
	return model.KeyValueMap{
		"status":         string(s.status),
		"job_handle":     string(s.handle),
		"stop_requested": s.stopRequested,
		"err_msg":        s.errMsg,
		"run_epoch":      s.runEpoch,
	}
}

// graphState is the in-memory execution state of one graph.
type graphState struct {
	// opMu serializes the mutating operations of the graph and may be held
	// across dispatcher calls. Readers never take it.
	opMu sync.Mutex

	mu     sync.RWMutex
	loaded bool
	epoch  int64
	// deps is replaced as a whole and never mutated in place.
	deps  map[string][]string
	nodes map[string]nodeState
}

func (s *graphState) reset(graph *model.Graph, nodes []*model.GraphNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked(graph, nodes)
}

// resetIfUnloaded installs the loaded rows unless a mutator got there first.
func (s *graphState) resetIfUnloaded(graph *model.Graph, nodes []*model.GraphNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		s.resetLocked(graph, nodes)
	}
}

func (s *graphState) resetLocked(graph *model.Graph, nodes []*model.GraphNode) {
	ids := make([]string, 0, len(nodes))
	s.nodes = make(map[string]nodeState, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.GraphNodeID)
		s.nodes[n.GraphNodeID] = nodeStateOf(n)
	}
	s.deps = graphModel.Dependencies(topologyOf(ids, graph.Edges))
	s.epoch = graph.RunEpoch
	s.loaded = true
}

// setNode applies the whole state of one node at once.
func (s *graphState) setNode(id string, ns nodeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; ok {
		s.nodes[id] = ns
	}
}

// startEpoch resets the plan nodes to pending in the new epoch. The carried
// nodes move to the new epoch as they are.
func (s *graphState) startEpoch(epoch int64, plan, carried []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch = epoch
	for _, id := range plan {
		if _, ok := s.nodes[id]; ok {
			s.nodes[id] = pendingState(epoch)
		}
	}
	for _, id := range carried {
		if ns, ok := s.nodes[id]; ok {
			ns.runEpoch = epoch
			s.nodes[id] = ns
		}
	}
}

func pendingState(epoch int64) nodeState {
	return nodeState{status: graphModel.StatePending, runEpoch: epoch}
}

func (s *graphState) snapshot() (*snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, false
	}
	nodes := make(map[string]nodeState, len(s.nodes))
	for id, ns := range s.nodes {
		nodes[id] = ns
	}
	return &snapshot{epoch: s.epoch, deps: s.deps, nodes: nodes}, true
}

// snapshot is a consistent copy of a graphState.
type snapshot struct {
	epoch int64
	deps  map[string][]string
	nodes map[string]nodeState
}

// inPlan tells whether the node belongs to the latest started closure.
func (s *snapshot) inPlan(id string) bool {
	return s.epoch > 0 && s.nodes[id].runEpoch == s.epoch
}

func (s *snapshot) planStates() map[string]graphModel.ExecutionState {
	states := make(map[string]graphModel.ExecutionState)
	for id, ns := range s.nodes {
		if s.inPlan(id) {
			states[id] = ns.status
		}
	}
	return states
}

// status aggregates the plan nodes. A graph never started is pending unless
// it has no nodes at all.
func (s *snapshot) status() graphModel.GraphStatus {
	plan := s.planStates()
	if len(plan) > 0 {
		return graphModel.Aggregate(plan, s.deps)
	}
	if len(s.nodes) == 0 {
		return graphModel.GraphSucceeded
	}
	return graphModel.GraphPending
}

// liveOutside returns the plan nodes not in next, sorted, if the plan can
// still progress.
func (s *snapshot) liveOutside(next []string) []string {
	if s.status() != graphModel.GraphRunning {
		return nil
	}
	in := make(map[string]struct{}, len(next))
	for _, id := range next {
		in[id] = struct{}{}
	}
	var ids []string
	for id := range s.nodes {
		if _, ok := in[id]; !ok && s.inPlan(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *snapshot) runnable() []string {
	return graphModel.Runnable(s.planStates(), s.deps)
}

func (s *snapshot) nodesIn(status graphModel.ExecutionState) []string {
	var ids []string
	for id, ns := range s.nodes {
		if ns.status == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *snapshot) view(key graphKey) *GraphStatusView {
	v := &GraphStatusView{
		ProjectID: key.projectID,
		GraphID:   key.graphID,
		RunEpoch:  s.epoch,
		Status:    s.status(),
		Nodes:     make([]*NodeStatus, 0, len(s.nodes)),
	}
	for id, ns := range s.nodes {
		v.Nodes = append(v.Nodes, &NodeStatus{
			GraphNodeID:   id,
			Status:        ns.status,
			JobHandle:     string(ns.handle),
			StopRequested: ns.stopRequested,
			ErrMsg:        ns.errMsg,
			InPlan:        s.inPlan(id),
		})
	}
	sort.Slice(v.Nodes, func(i, j int) bool {
		return v.Nodes[i].GraphNodeID < v.Nodes[j].GraphNodeID
	})
	return v
}
