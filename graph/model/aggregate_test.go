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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	t.Parallel()

	deps := Dependencies(diamond())
	states := func(a, b, c, d ExecutionState) map[string]ExecutionState {
		return map[string]ExecutionState{"A": a, "B": b, "C": c, "D": d}
	}

	testCases := []struct {
		states   map[string]ExecutionState
		expected GraphStatus
	}{
		{states(StateSucceeded, StateSucceeded, StateSucceeded, StateSucceeded), GraphSucceeded},
		// the root is runnable
		{states(StatePending, StatePending, StatePending, StatePending), GraphRunning},
		{states(StateRunning, StatePending, StatePending, StatePending), GraphRunning},
		{states(StateSucceeded, StateRunning, StateSucceeded, StatePending), GraphRunning},
		// C can still run after B failed
		{states(StateSucceeded, StateFailed, StatePending, StatePending), GraphRunning},
		{states(StateSucceeded, StateFailed, StateSucceeded, StatePending), GraphFailed},
		{states(StateFailed, StatePending, StatePending, StatePending), GraphFailed},
		{states(StateSucceeded, StateFailed, StateRunning, StatePending), GraphRunning},
		{states(StateSucceeded, StateStopped, StateSucceeded, StatePending), GraphPending},
		{states(StateSucceeded, StateSucceeded, StateSucceeded, StateStopped), GraphPending},
		{states(StateStopped, StateStopped, StateStopped, StateStopped), GraphPending},
		{states(StateSucceeded, StateStopped, StateFailed, StatePending), GraphFailed},
	}
	for i, tc := range testCases {
		require.Equal(t, tc.expected, Aggregate(tc.states, deps), "case %d", i)
	}

	require.Equal(t, GraphSucceeded, Aggregate(map[string]ExecutionState{}, nil))
}

func TestRunnable(t *testing.T) {
	t.Parallel()

	deps := Dependencies(diamond())
	require.Equal(t, []string{"A"}, Runnable(map[string]ExecutionState{
		"A": StatePending, "B": StatePending, "C": StatePending, "D": StatePending,
	}, deps))
	require.Equal(t, []string{"B", "C"}, Runnable(map[string]ExecutionState{
		"A": StateSucceeded, "B": StatePending, "C": StatePending, "D": StatePending,
	}, deps))
	require.Empty(t, Runnable(map[string]ExecutionState{
		"A": StateSucceeded, "B": StateSucceeded, "C": StateRunning, "D": StatePending,
	}, deps))
	require.Equal(t, []string{"D"}, Runnable(map[string]ExecutionState{
		"A": StateSucceeded, "B": StateSucceeded, "C": StateSucceeded, "D": StatePending,
	}, deps))

	require.True(t, StateStopped.IsTerminated())
	require.False(t, StateRunning.IsTerminated())
}
