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
	"fmt"
	"sort"

	"github.com/google/btree"
	"github.com/secretflow/padflow/pkg/errors"
)

const readySetDegree = 16

type edgeKey struct {
	source string
	target string
}

// Validate checks the graph is a well formed DAG: every edge endpoint is a
// known node, there are no duplicate edges and no cycles. A self loop is a
// one node cycle.
func Validate(g *Graph) error {
	_, err := TopoSort(g)
	return err
}

// TopoSort returns the nodes in topological order. Among nodes that are ready
// at the same time the smallest id goes first, so the order is stable.
func TopoSort(g *Graph) ([]string, error) {
	if err := checkStructure(g); err != nil {
		return nil, err
	}

	indegree := make(map[string]int, len(g.Nodes))
	dependents := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n] = 0
	}
	for _, e := range g.Edges {
		indegree[e.Target]++
		dependents[e.Source] = append(dependents[e.Source], e.Target)
	}

	ready := btree.NewOrderedG[string](readySetDegree)
	for _, n := range g.Nodes {
		if indegree[n] == 0 {
			ready.ReplaceOrInsert(n)
		}
	}
	order := make([]string, 0, len(g.Nodes))
	for {
		n, ok := ready.DeleteMin()
		if !ok {
			break
		}
		order = append(order, n)
		for _, d := range dependents[n] {
			indegree[d]--
			if indegree[d] == 0 {
				ready.ReplaceOrInsert(d)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		var remaining []string
		for n, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, n)
			}
		}
		sort.Strings(remaining)
		return nil, errors.ErrGraphHasCycle.GenWithStackByArgs(remaining)
	}
	return order, nil
}

func checkStructure(g *Graph) error {
	nodes := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, ok := nodes[n]; ok {
			return errors.ErrInvalidArgument.GenWithStackByArgs(fmt.Sprintf("duplicate graph node %s", n))
		}
		nodes[n] = struct{}{}
	}

	edges := make(map[edgeKey]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		ref := fmt.Sprintf("edge %s -> %s", e.Source, e.Target)
		if _, ok := nodes[e.Source]; !ok {
			return errors.ErrUnknownNodeReference.GenWithStackByArgs(e.Source, ref)
		}
		if _, ok := nodes[e.Target]; !ok {
			return errors.ErrUnknownNodeReference.GenWithStackByArgs(e.Target, ref)
		}
		if e.Source == e.Target {
			return errors.ErrGraphHasCycle.GenWithStackByArgs([]string{e.Source})
		}
		key := edgeKey{source: e.Source, target: e.Target}
		if _, ok := edges[key]; ok {
			return errors.ErrDuplicateEdge.GenWithStackByArgs(e.Source, e.Target)
		}
		edges[key] = struct{}{}
	}
	return nil
}

// Dependencies returns the direct dependencies of every node. Nodes without
// dependencies map to an empty slice.
func Dependencies(g *Graph) map[string][]string {
	deps := make(map[string][]string, len(g.Nodes))
	for _, n := range g.Nodes {
		deps[n] = []string{}
	}
	for _, e := range g.Edges {
		deps[e.Target] = append(deps[e.Target], e.Source)
	}
	return deps
}

// Closure returns the subgraph made of targets and all their transitive
// dependencies. An empty target list selects the whole graph.
func Closure(g *Graph, targets []string) (*Graph, error) {
	if len(targets) == 0 {
		return &Graph{
			Nodes: append([]string(nil), g.Nodes...),
			Edges: append([]Edge(nil), g.Edges...),
		}, nil
	}

	deps := Dependencies(g)
	selected := make(map[string]struct{}, len(targets))
	stack := make([]string, 0, len(targets))
	for _, t := range targets {
		if _, ok := deps[t]; !ok {
			return nil, errors.ErrUnknownNodeReference.GenWithStackByArgs(t, "start targets")
		}
		stack = append(stack, t)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := selected[n]; ok {
			continue
		}
		selected[n] = struct{}{}
		stack = append(stack, deps[n]...)
	}

	sub := &Graph{}
	for _, n := range g.Nodes {
		if _, ok := selected[n]; ok {
			sub.Nodes = append(sub.Nodes, n)
		}
	}
	// the closure is ancestor closed, so an edge into a selected node always
	// starts from a selected node
	for _, e := range g.Edges {
		if _, ok := selected[e.Target]; ok {
			sub.Edges = append(sub.Edges, e)
		}
	}
	return sub, nil
}
