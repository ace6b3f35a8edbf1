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

	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestEdgeListScan(t *testing.T) {
	t.Parallel()

	var l EdgeList
	require.NoError(t, l.Scan(`[{"source":"a","target":"b","sourceAnchor":"out-0"}]`))
	require.Equal(t, EdgeList{{Source: "a", Target: "b", SourceAnchor: "out-0"}}, l)

	require.NoError(t, l.Scan(nil))
	require.Nil(t, l)

	require.Error(t, l.Scan(42))
	require.Error(t, l.Scan([]byte("{")))

	v, err := EdgeList(nil).Value()
	require.NoError(t, err)
	require.Equal(t, []byte("[]"), v)

	v, err = EdgeList{{Source: "a", Target: "b"}}.Value()
	require.NoError(t, err)
	require.JSONEq(t, `[{"source":"a","target":"b"}]`, string(v.([]byte)))
}

func TestSplitNetAddress(t *testing.T) {
	t.Parallel()

	ep, err := SplitNetAddress("alice.svc:1080")
	require.NoError(t, err)
	require.Equal(t, Endpoint{Host: "alice.svc", Port: 1080}, ep)

	for _, addr := range []string{"alice", "alice:http", ":1080", "alice:70000", ""} {
		_, err := SplitNetAddress(addr)
		require.True(t, errors.Is(err, errors.ErrInvalidArgument), addr)
	}
}

func TestGraphNodeDefMap(t *testing.T) {
	t.Parallel()

	n := &GraphNode{Code: "read_data/datatable", Label: "read", X: 1, Y: 2, NodeDef: []byte("{}"),
		Status: graphModel.StatePending}
	m := n.DefMap()
	require.Len(t, m, len(GraphNodeDefColumns)-1)
	require.Equal(t, "read_data/datatable", m["code"])
}
