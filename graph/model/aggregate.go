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

import "sort"

// Aggregate folds a snapshot of node states into the graph status.
//
//   - Succeeded: every node succeeded, including the empty graph.
//   - Running: some node is running, or some pending node has all its
//     dependencies succeeded and is about to be submitted.
//   - Failed: some node failed and nothing is running or about to run.
//   - Pending: anything else. Stopped nodes are neither success nor failure.
func Aggregate(states map[string]ExecutionState, deps map[string][]string) GraphStatus {
	allSucceeded := true
	anyFailed := false
	for _, s := range states {
		switch s {
		case StateSucceeded:
			continue
		case StateRunning:
			return GraphRunning
		case StateFailed:
			anyFailed = true
		}
		allSucceeded = false
	}
	if allSucceeded {
		return GraphSucceeded
	}
	if len(Runnable(states, deps)) > 0 {
		return GraphRunning
	}
	if anyFailed {
		return GraphFailed
	}
	return GraphPending
}

// Runnable returns the pending nodes whose direct dependencies all succeeded,
// sorted by id. Runnable nodes never depend on each other, so any order of
// them is a topological order.
func Runnable(states map[string]ExecutionState, deps map[string][]string) []string {
	var ready []string
	for n, s := range states {
		if s != StatePending {
			continue
		}
		ok := true
		for _, d := range deps[n] {
			if states[d] != StateSucceeded {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)
	return ready
}
