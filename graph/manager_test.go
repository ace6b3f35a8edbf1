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
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/clock"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/kuscia"
	kusciaMock "github.com/secretflow/padflow/pkg/kuscia/mock"
	"github.com/secretflow/padflow/pkg/orm"
	"github.com/secretflow/padflow/pkg/orm/model"
	"github.com/stretchr/testify/require"
)

const testProject = "project-1"

func handleOf(id string) kuscia.JobHandle {
	return kuscia.JobHandle("job-" + id)
}

// fakeDispatcher runs jobs in memory. Jobs stay running until finish is
// called.
type fakeDispatcher struct {
	mu        sync.Mutex
	jobs      map[kuscia.JobHandle]graphModel.ExecutionState
	defs      map[string][]byte
	submitted []string
	cancelled []kuscia.JobHandle
	submitErr map[string]error
	queryErr  map[kuscia.JobHandle]error
	cancelAck bool
	cancelErr error
	outputs   map[kuscia.JobHandle][]kuscia.DistData
	logs      map[kuscia.JobHandle][]string
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		jobs:      make(map[kuscia.JobHandle]graphModel.ExecutionState),
		defs:      make(map[string][]byte),
		submitErr: make(map[string]error),
		queryErr:  make(map[kuscia.JobHandle]error),
		outputs:   make(map[kuscia.JobHandle][]kuscia.DistData),
		logs:      make(map[kuscia.JobHandle][]string),
	}
}

func (f *fakeDispatcher) register(m *kusciaMock.MockJobDispatcher) {
	m.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id string, def []byte) (kuscia.JobHandle, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if err := f.submitErr[id]; err != nil {
				return "", err
			}
			f.submitted = append(f.submitted, id)
			f.defs[id] = def
			f.jobs[handleOf(id)] = graphModel.StateRunning
			return handleOf(id), nil
		}).AnyTimes()
	m.EXPECT().QueryStatus(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, handle kuscia.JobHandle) (graphModel.ExecutionState, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if err := f.queryErr[handle]; err != nil {
				return "", err
			}
			state, ok := f.jobs[handle]
			if !ok {
				return "", errors.ErrDispatcherFailed.GenWithStackByArgs("job not found")
			}
			return state, nil
		}).AnyTimes()
	m.EXPECT().Cancel(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, handle kuscia.JobHandle) (bool, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.cancelled = append(f.cancelled, handle)
			if f.cancelErr != nil {
				return false, f.cancelErr
			}
			if f.cancelAck {
				f.jobs[handle] = graphModel.StateStopped
			}
			return f.cancelAck, nil
		}).AnyTimes()
	m.EXPECT().QueryOutput(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, handle kuscia.JobHandle) ([]kuscia.DistData, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if err := f.queryErr[handle]; err != nil {
				return nil, err
			}
			return f.outputs[handle], nil
		}).AnyTimes()
	m.EXPECT().QueryLogs(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, handle kuscia.JobHandle) ([]string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if err := f.queryErr[handle]; err != nil {
				return nil, err
			}
			return f.logs[handle], nil
		}).AnyTimes()
}

func (f *fakeDispatcher) setResult(id string, outputs []kuscia.DistData, logs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[handleOf(id)] = outputs
	f.logs[handleOf(id)] = logs
}

// flakyStore fails the first write of a running state of one node.
type flakyStore struct {
	orm.Client

	mu       sync.Mutex
	failNode string
}

func (s *flakyStore) UpdateGraphNode(
	ctx context.Context, projectID, graphID, graphNodeID string, values model.KeyValueMap,
) (orm.Result, error) {
	s.mu.Lock()
	fail := graphNodeID == s.failNode && values["status"] == string(graphModel.StateRunning)
	if fail {
		s.failNode = ""
	}
	s.mu.Unlock()
	if fail {
		return nil, errors.ErrMetaOpFail.GenWithStackByArgs()
	}
	return s.Client.UpdateGraphNode(ctx, projectID, graphID, graphNodeID, values)
}

func (f *fakeDispatcher) finish(id string, state graphModel.ExecutionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[handleOf(id)] = state
}

func (f *fakeDispatcher) takeSubmitted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	submitted := f.submitted
	f.submitted = nil
	return submitted
}

func (f *fakeDispatcher) definition(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.defs[id]
}

func (f *fakeDispatcher) failSubmit(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErr[id] = err
}

func (f *fakeDispatcher) failQuery(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.queryErr, handleOf(id))
		return
	}
	f.queryErr[handleOf(id)] = err
}

func (f *fakeDispatcher) setCancel(ack bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelAck = ack
	f.cancelErr = err
}

func (f *fakeDispatcher) cancelledJobs() []kuscia.JobHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kuscia.JobHandle(nil), f.cancelled...)
}

type testSuite struct {
	m          Manager
	store      orm.Client
	dispatcher kuscia.JobDispatcher
	fake       *fakeDispatcher
}

func newTestSuite(t *testing.T, opts ...Option) *testSuite {
	store, err := orm.NewMockClient()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fake := newFakeDispatcher()
	dispatcher := kusciaMock.NewMockJobDispatcher(gomock.NewController(t))
	fake.register(dispatcher)
	return &testSuite{
		m:          NewManager(store, dispatcher, opts...),
		store:      store,
		dispatcher: dispatcher,
		fake:       fake,
	}
}

func nodeParams(ids ...string) []*GraphNodeParam {
	params := make([]*GraphNodeParam, 0, len(ids))
	for _, id := range ids {
		params = append(params, &GraphNodeParam{
			GraphNodeID: id,
			Code:        "read_data/datatable",
			Label:       id,
			NodeDef:     json.RawMessage(`{"table":"` + id + `"}`),
		})
	}
	return params
}

func edge(source, target string) graphModel.Edge {
	return graphModel.Edge{Source: source, Target: target}
}

func (s *testSuite) createGraph(t *testing.T, ids []string, edges ...graphModel.Edge) string {
	graphID, err := s.m.CreateGraph(context.Background(), &CreateGraphParam{
		ProjectID: testProject,
		Name:      "graph",
		Nodes:     nodeParams(ids...),
		Edges:     edges,
	})
	require.NoError(t, err)
	require.NotEmpty(t, graphID)
	return graphID
}

func (s *testSuite) status(t *testing.T, graphID string) (*GraphStatusView, map[string]*NodeStatus) {
	view, err := s.m.ListGraphNodeStatus(context.Background(), testProject, graphID)
	require.NoError(t, err)
	return view, statusByID(view)
}

func (s *testSuite) refresh(t *testing.T, graphID string) (*GraphStatusView, map[string]*NodeStatus) {
	view, err := s.m.RefreshGraph(context.Background(), testProject, graphID)
	require.NoError(t, err)
	return view, statusByID(view)
}

func statusByID(view *GraphStatusView) map[string]*NodeStatus {
	nodes := make(map[string]*NodeStatus, len(view.Nodes))
	for _, n := range view.Nodes {
		nodes[n.GraphNodeID] = n
	}
	return nodes
}

func TestStartGraphDiamond(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B", "C", "D"},
		edge("A", "B"), edge("A", "C"), edge("B", "D"), edge("C", "D"))

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, []string{"D"}))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	view, nodes := s.status(t, graphID)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	require.Equal(t, int64(1), view.RunEpoch)
	require.Equal(t, graphModel.StateRunning, nodes["A"].Status)
	require.Equal(t, "job-A", nodes["A"].JobHandle)
	require.Equal(t, graphModel.StatePending, nodes["B"].Status)
	require.JSONEq(t, `{"code":"read_data/datatable","label":"A","nodeDef":{"table":"A"}}`,
		string(s.fake.definition("A")))

	view, _ = s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	require.Empty(t, s.fake.takeSubmitted())

	s.fake.finish("A", graphModel.StateSucceeded)
	view, nodes = s.refresh(t, graphID)
	require.Equal(t, []string{"B", "C"}, s.fake.takeSubmitted())
	require.Equal(t, graphModel.GraphRunning, view.Status)
	require.Equal(t, graphModel.StateSucceeded, nodes["A"].Status)

	s.fake.finish("B", graphModel.StateSucceeded)
	view, _ = s.refresh(t, graphID)
	require.Empty(t, s.fake.takeSubmitted())
	require.Equal(t, graphModel.GraphRunning, view.Status)

	s.fake.finish("C", graphModel.StateSucceeded)
	s.refresh(t, graphID)
	require.Equal(t, []string{"D"}, s.fake.takeSubmitted())

	s.fake.finish("D", graphModel.StateSucceeded)
	view, _ = s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)
	for _, n := range view.Nodes {
		require.Equal(t, graphModel.StateSucceeded, n.Status)
		require.True(t, n.InPlan)
	}

	rows, err := s.store.QueryGraphNodes(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, row := range rows {
		require.Equal(t, graphModel.StateSucceeded, row.Status)
		require.Equal(t, view.RunEpoch, row.RunEpoch)
	}

	impl := s.m.(*managerImpl)
	require.Equal(t, float64(4), testutil.ToFloat64(impl.metrics.submitCounter.WithLabelValues(resultSuccess)))
}

func TestStartGraphClosure(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B", "C", "D"},
		edge("A", "B"), edge("A", "C"), edge("B", "D"), edge("C", "D"))

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, []string{"B"}))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	s.fake.finish("A", graphModel.StateSucceeded)
	s.refresh(t, graphID)
	require.Equal(t, []string{"B"}, s.fake.takeSubmitted())
	s.fake.finish("B", graphModel.StateSucceeded)
	view, nodes := s.refresh(t, graphID)
	require.Empty(t, s.fake.takeSubmitted())
	require.Equal(t, graphModel.GraphSucceeded, view.Status)
	for _, id := range []string{"C", "D"} {
		require.Equal(t, graphModel.StatePending, nodes[id].Status)
		require.False(t, nodes[id].InPlan)
	}

	// a new start re-runs the whole closure in a new epoch
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	view, nodes = s.status(t, graphID)
	require.Equal(t, int64(2), view.RunEpoch)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	for _, n := range nodes {
		require.True(t, n.InPlan)
	}
	require.Equal(t, graphModel.StatePending, nodes["B"].Status)

	err := s.m.StartGraph(ctx, testProject, graphID, []string{"X"})
	require.True(t, errors.Is(err, errors.ErrUnknownNodeReference), err)
}

func TestStartGraphJoinsLivePlan(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B", "C"}, edge("A", "B"))

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, []string{"B"}))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, []string{"C"}))
	require.Equal(t, []string{"C"}, s.fake.takeSubmitted())

	view, nodes := s.status(t, graphID)
	require.Equal(t, int64(2), view.RunEpoch)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	for _, n := range nodes {
		require.True(t, n.InPlan, n.GraphNodeID)
	}
	require.Equal(t, graphModel.StateRunning, nodes["A"].Status)
	require.Equal(t, graphModel.StatePending, nodes["B"].Status)

	s.fake.finish("A", graphModel.StateSucceeded)
	s.fake.finish("C", graphModel.StateSucceeded)
	view, _ = s.refresh(t, graphID)
	require.Equal(t, []string{"B"}, s.fake.takeSubmitted())
	require.Equal(t, graphModel.GraphRunning, view.Status)

	s.fake.finish("B", graphModel.StateSucceeded)
	view, _ = s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)
	rows, err := s.store.QueryGraphNodes(ctx, testProject, graphID)
	require.NoError(t, err)
	for _, row := range rows {
		require.Equal(t, graphModel.StateSucceeded, row.Status)
		require.Equal(t, int64(2), row.RunEpoch)
	}

	// a finished plan is replaced, not joined
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, []string{"C"}))
	require.Equal(t, []string{"C"}, s.fake.takeSubmitted())
	view, nodes = s.status(t, graphID)
	require.Equal(t, int64(3), view.RunEpoch)
	require.True(t, nodes["C"].InPlan)
	require.False(t, nodes["A"].InPlan)
	require.False(t, nodes["B"].InPlan)
}

func TestUnrecordedSubmissionIsRetried(t *testing.T) {
	t.Parallel()

	store, err := orm.NewMockClient()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	fake := newFakeDispatcher()
	dispatcher := kusciaMock.NewMockJobDispatcher(gomock.NewController(t))
	fake.register(dispatcher)
	m := NewManager(&flakyStore{Client: store, failNode: "A"}, dispatcher).(*managerImpl)
	s := &testSuite{m: m, store: store, dispatcher: dispatcher, fake: fake}
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"})

	err = m.StartGraph(ctx, testProject, graphID, nil)
	require.True(t, errors.Is(err, errors.ErrMetaOpFail), err)
	require.Equal(t, []string{"A"}, fake.takeSubmitted())
	require.Equal(t, []kuscia.JobHandle{handleOf("A")}, fake.cancelledJobs())

	view, nodes := s.status(t, graphID)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	for _, id := range []string{"A", "B"} {
		require.Equal(t, graphModel.StatePending, nodes[id].Status)
		require.True(t, nodes[id].InPlan)
	}
	running, err := store.QueryGraphNodesByStatus(ctx, graphModel.StateRunning)
	require.NoError(t, err)
	require.Empty(t, running)

	require.NoError(t, m.refreshAll(ctx))
	require.Equal(t, []string{"A", "B"}, fake.takeSubmitted())
	rows, err := store.QueryGraphNodes(ctx, testProject, graphID)
	require.NoError(t, err)
	for _, row := range rows {
		require.Equal(t, graphModel.StateRunning, row.Status)
		require.Equal(t, string(handleOf(row.GraphNodeID)), row.JobHandle)
	}

	// a plan that cannot progress is left alone
	fake.finish("A", graphModel.StateFailed)
	fake.finish("B", graphModel.StateFailed)
	require.NoError(t, m.refreshAll(ctx))
	require.NoError(t, m.refreshAll(ctx))
	require.Empty(t, fake.takeSubmitted())
}

func TestGraphNodeOutputAndLogs(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"}, edge("A", "B"))
	outputs := []kuscia.DistData{{
		Name: "A-output",
		Type: "sf.table.individual",
		DataRefs: []kuscia.DataRef{
			{URI: "A/alice.csv", Party: "alice", Format: "csv"},
		},
	}}
	s.fake.setResult("A", outputs, []string{"reading", "done"})

	// never submitted
	out, err := s.m.GetGraphNodeOutput(ctx, testProject, graphID, "A")
	require.NoError(t, err)
	require.Equal(t, graphModel.StatePending, out.Status)
	require.Empty(t, out.JobHandle)
	require.Empty(t, out.Outputs)
	logs, err := s.m.GetGraphNodeLogs(ctx, testProject, graphID, "A")
	require.NoError(t, err)
	require.Empty(t, logs.Logs)

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	out, err = s.m.GetGraphNodeOutput(ctx, testProject, graphID, "A")
	require.NoError(t, err)
	require.Equal(t, graphModel.StateRunning, out.Status)
	require.Empty(t, out.Outputs)
	logs, err = s.m.GetGraphNodeLogs(ctx, testProject, graphID, "A")
	require.NoError(t, err)
	require.Equal(t, string(handleOf("A")), logs.JobHandle)
	require.Equal(t, []string{"reading", "done"}, logs.Logs)

	s.fake.finish("A", graphModel.StateSucceeded)
	s.refresh(t, graphID)
	out, err = s.m.GetGraphNodeOutput(ctx, testProject, graphID, "A")
	require.NoError(t, err)
	require.Equal(t, graphModel.StateSucceeded, out.Status)
	require.Equal(t, outputs, out.Outputs)

	_, err = s.m.GetGraphNodeOutput(ctx, testProject, graphID, "X")
	require.True(t, errors.Is(err, errors.ErrGraphNodeNotFound), err)
	_, err = s.m.GetGraphNodeLogs(ctx, testProject, "missing", "A")
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)

	s.fake.failQuery("B", errors.ErrRemoteUnavailable.GenWithStackByArgs("kuscia"))
	_, err = s.m.GetGraphNodeLogs(ctx, testProject, graphID, "B")
	require.True(t, errors.Is(err, errors.ErrRemoteUnavailable), err)
}

func TestStartGraphRejectsCycle(t *testing.T) {
	t.Parallel()

	store, err := orm.NewMockClient()
	require.NoError(t, err)
	defer store.Close()
	// the dispatcher must not be called
	m := NewManager(store, kusciaMock.NewMockJobDispatcher(gomock.NewController(t)))
	ctx := context.Background()

	require.NoError(t, store.CreateGraph(ctx, &model.Graph{
		ProjectID: testProject,
		GraphID:   "cyclic",
		Edges:     model.EdgeList{edge("A", "B"), edge("B", "A")},
	}))
	require.NoError(t, store.CreateGraphNodes(ctx, []*model.GraphNode{
		{ProjectID: testProject, GraphID: "cyclic", GraphNodeID: "A", Code: "c", Status: graphModel.StatePending},
		{ProjectID: testProject, GraphID: "cyclic", GraphNodeID: "B", Code: "c", Status: graphModel.StatePending},
	}))

	err = m.StartGraph(ctx, testProject, "cyclic", nil)
	require.True(t, errors.Is(err, errors.ErrGraphHasCycle), err)
	view, err := m.ListGraphNodeStatus(ctx, testProject, "cyclic")
	require.NoError(t, err)
	require.Equal(t, graphModel.GraphPending, view.Status)
	require.Equal(t, int64(0), view.RunEpoch)
}

func TestCreateGraphValidation(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	cases := []struct {
		param *CreateGraphParam
		err   error
	}{
		{param: nil, err: errors.ErrInvalidArgument},
		{param: &CreateGraphParam{Name: "no project"}, err: errors.ErrInvalidArgument},
		{
			param: &CreateGraphParam{ProjectID: testProject, Nodes: []*GraphNodeParam{nil}},
			err:   errors.ErrInvalidArgument,
		},
		{
			param: &CreateGraphParam{ProjectID: testProject, Nodes: []*GraphNodeParam{{GraphNodeID: "A"}}},
			err:   errors.ErrInvalidArgument,
		},
		{
			param: &CreateGraphParam{ProjectID: testProject, Nodes: nodeParams("A", "A")},
			err:   errors.ErrInvalidArgument,
		},
		{
			param: &CreateGraphParam{
				ProjectID: testProject, Nodes: nodeParams("A"),
				Edges: []graphModel.Edge{edge("A", "B")},
			},
			err: errors.ErrUnknownNodeReference,
		},
		{
			param: &CreateGraphParam{
				ProjectID: testProject, Nodes: nodeParams("A", "B"),
				Edges: []graphModel.Edge{edge("A", "B"), edge("A", "B")},
			},
			err: errors.ErrDuplicateEdge,
		},
		{
			param: &CreateGraphParam{
				ProjectID: testProject, Nodes: nodeParams("A", "B"),
				Edges: []graphModel.Edge{edge("A", "B"), edge("B", "A")},
			},
			err: errors.ErrGraphHasCycle,
		},
		{
			param: &CreateGraphParam{
				ProjectID: testProject, Nodes: nodeParams("A"),
				Edges: []graphModel.Edge{edge("A", "A")},
			},
			err: errors.ErrGraphHasCycle,
		},
	}
	for i, tc := range cases {
		_, err := s.m.CreateGraph(ctx, tc.param)
		require.True(t, errors.Is(err, tc.err), "case %d: %v", i, err)
	}
	graphs, err := s.m.ListGraphs(ctx, testProject)
	require.NoError(t, err)
	require.Empty(t, graphs)
}

func TestEmptyGraph(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, nil)

	view, _ := s.status(t, graphID)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Empty(t, s.fake.takeSubmitted())
	view, _ = s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)
	require.Empty(t, view.Nodes)
}

func TestSubmitFailureFailsOnlyThatNode(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"})
	s.fake.failSubmit("B", errors.ErrDispatcherFailed.GenWithStackByArgs("quota exceeded"))

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	view, nodes := s.status(t, graphID)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	require.Equal(t, graphModel.StateRunning, nodes["A"].Status)
	require.Equal(t, graphModel.StateFailed, nodes["B"].Status)
	require.Contains(t, nodes["B"].ErrMsg, "quota exceeded")
	require.Empty(t, nodes["B"].JobHandle)

	s.fake.finish("A", graphModel.StateSucceeded)
	view, _ = s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphFailed, view.Status)

	row, err := s.store.GetGraphNode(ctx, testProject, graphID, "B")
	require.NoError(t, err)
	require.Equal(t, graphModel.StateFailed, row.Status)
	require.Contains(t, row.ErrMsg, "quota exceeded")

	impl := s.m.(*managerImpl)
	require.Equal(t, float64(1), testutil.ToFloat64(impl.metrics.submitCounter.WithLabelValues(resultError)))
}

func TestStopGraphAcknowledged(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"}, edge("A", "B"))
	s.fake.setCancel(true, nil)

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	require.NoError(t, s.m.StopGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []kuscia.JobHandle{"job-A"}, s.fake.cancelledJobs())

	view, nodes := s.status(t, graphID)
	require.Equal(t, graphModel.GraphPending, view.Status)
	for _, id := range []string{"A", "B"} {
		require.Equal(t, graphModel.StateStopped, nodes[id].Status)
		require.True(t, nodes[id].StopRequested)
	}
	row, err := s.store.GetGraphNode(ctx, testProject, graphID, "A")
	require.NoError(t, err)
	require.Equal(t, graphModel.StateStopped, row.Status)
	require.True(t, row.StopRequested)

	// stopped nodes are not resumed by polling
	s.refresh(t, graphID)
	require.Empty(t, s.fake.takeSubmitted())

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	_, nodes = s.status(t, graphID)
	require.Equal(t, graphModel.StateRunning, nodes["A"].Status)
	require.False(t, nodes["A"].StopRequested)
}

func TestStopGraphNotAcknowledged(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"}, edge("A", "B"))

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.NoError(t, s.m.StopGraph(ctx, testProject, graphID, []string{"A"}))
	view, nodes := s.status(t, graphID)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	require.Equal(t, graphModel.StateRunning, nodes["A"].Status)
	require.True(t, nodes["A"].StopRequested)
	require.Equal(t, graphModel.StatePending, nodes["B"].Status)
	require.False(t, nodes["B"].StopRequested)

	require.NoError(t, s.m.StopGraph(ctx, testProject, graphID, []string{"B"}))
	s.fake.finish("A", graphModel.StateStopped)
	view, nodes = s.refresh(t, graphID)
	require.Equal(t, graphModel.StateStopped, nodes["A"].Status)
	require.Equal(t, graphModel.StateStopped, nodes["B"].Status)
	require.Equal(t, graphModel.GraphPending, view.Status)
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
}

func TestStopGraphErrors(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B", "C"}, edge("A", "B"))

	err := s.m.StopGraph(ctx, testProject, "missing", nil)
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)

	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []string{"A", "C"}, s.fake.takeSubmitted())
	s.fake.finish("C", graphModel.StateSucceeded)
	s.refresh(t, graphID)

	// unknown ids are rejected before anything is stopped
	err = s.m.StopGraph(ctx, testProject, graphID, []string{"A", "X"})
	require.True(t, errors.Is(err, errors.ErrGraphNodeNotFound), err)
	require.Empty(t, s.fake.cancelledJobs())
	_, nodes := s.status(t, graphID)
	require.False(t, nodes["A"].StopRequested)

	s.fake.setCancel(false, errors.ErrRemoteUnavailable.GenWithStackByArgs())
	err = s.m.StopGraph(ctx, testProject, graphID, nil)
	require.True(t, errors.Is(err, errors.ErrRemoteUnavailable), err)
	_, nodes = s.status(t, graphID)
	require.Equal(t, graphModel.StateRunning, nodes["A"].Status)
	require.True(t, nodes["A"].StopRequested)
	require.Equal(t, graphModel.StateStopped, nodes["B"].Status)
	// terminal nodes keep their state
	require.Equal(t, graphModel.StateSucceeded, nodes["C"].Status)
}

func TestGraphGuardsWhileRunning(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"}, edge("A", "B"))
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))

	err := s.m.UpdateGraphNode(ctx, testProject, graphID, &GraphNodeParam{GraphNodeID: "B", Code: "train"})
	require.True(t, errors.Is(err, errors.ErrGraphExecutionInProgress), err)
	err = s.m.FullUpdateGraph(ctx, &FullUpdateGraphParam{
		ProjectID: testProject, GraphID: graphID, Nodes: nodeParams("A"),
	})
	require.True(t, errors.Is(err, errors.ErrGraphExecutionInProgress), err)
	err = s.m.DeleteGraph(ctx, testProject, graphID)
	require.True(t, errors.Is(err, errors.ErrGraphExecutionInProgress), err)
	err = s.m.StartGraph(ctx, testProject, graphID, []string{"B"})
	require.True(t, errors.Is(err, errors.ErrGraphExecutionInProgress), err)
	require.NoError(t, s.m.UpdateGraphMeta(ctx, testProject, graphID, "renamed"))

	s.fake.finish("A", graphModel.StateFailed)
	view, _ := s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphFailed, view.Status)

	require.NoError(t, s.m.UpdateGraphNode(ctx, testProject, graphID,
		&GraphNodeParam{GraphNodeID: "B", Code: "train", Label: "trainer", X: 10, Y: 20}))
	detail, err := s.m.GetGraphDetail(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Equal(t, "renamed", detail.Graph.Name)
	require.Equal(t, graphModel.GraphFailed, detail.Status)
	for _, n := range detail.Nodes {
		if n.GraphNodeID == "B" {
			require.Equal(t, "train", n.Code)
			require.Equal(t, "trainer", n.Label)
			require.Equal(t, 10, n.X)
			require.Equal(t, graphModel.StatePending, n.Status)
		}
	}

	require.NoError(t, s.m.DeleteGraph(ctx, testProject, graphID))
	_, err = s.m.GetGraphDetail(ctx, testProject, graphID)
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	_, err = s.m.ListGraphNodeStatus(ctx, testProject, graphID)
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	rows, err := s.store.QueryGraphNodes(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestFullUpdateGraph(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"}, edge("A", "B"))
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	s.fake.finish("A", graphModel.StateSucceeded)
	s.refresh(t, graphID)
	s.fake.finish("B", graphModel.StateSucceeded)
	view, _ := s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)
	require.Equal(t, []string{"A", "B"}, s.fake.takeSubmitted())

	params := nodeParams("A", "B", "C")
	params[1].Code = "train"
	require.NoError(t, s.m.FullUpdateGraph(ctx, &FullUpdateGraphParam{
		ProjectID: testProject,
		GraphID:   graphID,
		Nodes:     params,
		Edges:     []graphModel.Edge{edge("A", "B"), edge("B", "C")},
	}))
	view, nodes := s.status(t, graphID)
	require.Len(t, nodes, 3)
	require.Equal(t, graphModel.StateSucceeded, nodes["A"].Status)
	require.Equal(t, graphModel.StateSucceeded, nodes["B"].Status)
	require.Equal(t, "job-B", nodes["B"].JobHandle)
	require.Equal(t, graphModel.StatePending, nodes["C"].Status)
	require.False(t, nodes["C"].InPlan)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)

	detail, err := s.m.GetGraphDetail(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Len(t, detail.Graph.Edges, 2)
	for _, n := range detail.Nodes {
		if n.GraphNodeID == "B" {
			require.Equal(t, "train", n.Code)
		}
	}

	// C runs once its dependencies are planned again
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, []string{"C"}))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())
	s.fake.finish("A", graphModel.StateSucceeded)
	s.refresh(t, graphID)
	s.fake.finish("B", graphModel.StateSucceeded)
	s.refresh(t, graphID)
	require.Equal(t, []string{"B", "C"}, s.fake.takeSubmitted())
	s.fake.finish("C", graphModel.StateSucceeded)
	view, _ = s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)

	require.NoError(t, s.m.FullUpdateGraph(ctx, &FullUpdateGraphParam{
		ProjectID: testProject, GraphID: graphID, Nodes: nodeParams("A"),
	}))
	rows, err := s.store.QueryGraphNodes(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "A", rows[0].GraphNodeID)

	err = s.m.FullUpdateGraph(ctx, &FullUpdateGraphParam{
		ProjectID: testProject, GraphID: graphID, Nodes: nodeParams("A"),
		Edges: []graphModel.Edge{edge("A", "Z")},
	})
	require.True(t, errors.Is(err, errors.ErrUnknownNodeReference), err)
	err = s.m.FullUpdateGraph(ctx, &FullUpdateGraphParam{ProjectID: testProject})
	require.True(t, errors.Is(err, errors.ErrInvalidArgument), err)
	err = s.m.FullUpdateGraph(ctx, &FullUpdateGraphParam{ProjectID: testProject, GraphID: "missing"})
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	rows, err = s.store.QueryGraphNodes(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestGraphCRUD(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID, err := s.m.CreateGraph(ctx, &CreateGraphParam{
		ProjectID: testProject,
		Name:      "psi",
		OwnerID:   "alice",
		Nodes:     nodeParams("A", "B"),
		Edges:     []graphModel.Edge{{Source: "A", Target: "B", SourceAnchor: "out-0", TargetAnchor: "in-0"}},
	})
	require.NoError(t, err)

	graphs, err := s.m.ListGraphs(ctx, testProject)
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	require.Equal(t, "psi", graphs[0].Name)
	require.Equal(t, "alice", graphs[0].OwnerID)
	graphs, err = s.m.ListGraphs(ctx, "other")
	require.NoError(t, err)
	require.Empty(t, graphs)

	detail, err := s.m.GetGraphDetail(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Len(t, detail.Nodes, 2)
	require.Equal(t, graphModel.GraphPending, detail.Status)
	require.Equal(t, "out-0", detail.Graph.Edges[0].SourceAnchor)

	require.NoError(t, s.m.UpdateGraphMeta(ctx, testProject, graphID, "psi-v2"))
	detail, err = s.m.GetGraphDetail(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Equal(t, "psi-v2", detail.Graph.Name)
	longName := make([]byte, 257)
	for i := range longName {
		longName[i] = 'x'
	}
	err = s.m.UpdateGraphMeta(ctx, testProject, graphID, string(longName))
	require.True(t, errors.Is(err, errors.ErrInvalidArgument), err)

	err = s.m.UpdateGraphNode(ctx, testProject, graphID, nil)
	require.True(t, errors.Is(err, errors.ErrInvalidArgument), err)
	err = s.m.UpdateGraphNode(ctx, testProject, graphID, &GraphNodeParam{GraphNodeID: "A"})
	require.True(t, errors.Is(err, errors.ErrInvalidArgument), err)
	err = s.m.UpdateGraphNode(ctx, testProject, graphID, &GraphNodeParam{GraphNodeID: "X", Code: "c"})
	require.True(t, errors.Is(err, errors.ErrGraphNodeNotFound), err)

	_, err = s.m.GetGraphDetail(ctx, testProject, "missing")
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	err = s.m.UpdateGraphMeta(ctx, testProject, "missing", "x")
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	err = s.m.StartGraph(ctx, testProject, "missing", nil)
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	_, err = s.m.RefreshGraph(ctx, testProject, "missing")
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	err = s.m.DeleteGraph(ctx, testProject, "missing")
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
	// the graph id is scoped by project
	_, err = s.m.GetGraphDetail(ctx, "other", graphID)
	require.True(t, errors.Is(err, errors.ErrGraphNotFound), err)
}

func TestRefreshGraphPollErrors(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"})
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []string{"A", "B"}, s.fake.takeSubmitted())

	s.fake.failQuery("A", errors.ErrRemoteUnavailable.GenWithStackByArgs())
	s.fake.failQuery("B", errors.ErrDispatcherFailed.GenWithStackByArgs("job lost"))
	view, nodes := s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphRunning, view.Status)
	require.Equal(t, graphModel.StateRunning, nodes["A"].Status)
	require.Empty(t, nodes["A"].ErrMsg)
	require.Equal(t, graphModel.StateFailed, nodes["B"].Status)
	require.Contains(t, nodes["B"].ErrMsg, "job lost")

	s.fake.failQuery("A", nil)
	s.fake.finish("A", graphModel.StateSucceeded)
	view, _ = s.refresh(t, graphID)
	require.Equal(t, graphModel.GraphFailed, view.Status)
	require.Empty(t, s.fake.takeSubmitted())
}

func TestGraphStateSnapshotIsConsistent(t *testing.T) {
	t.Parallel()

	st := &graphState{}
	_, ok := st.snapshot()
	require.False(t, ok)
	st.reset(&model.Graph{ProjectID: testProject, GraphID: "g"}, []*model.GraphNode{
		{GraphNodeID: "A", Status: graphModel.StatePending},
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		states := []graphModel.ExecutionState{
			graphModel.StateRunning, graphModel.StateFailed, graphModel.StateSucceeded,
		}
		for i := 0; i < 1000; i++ {
			s := states[i%len(states)]
			st.setNode("A", nodeState{status: s, handle: kuscia.JobHandle(s), errMsg: string(s)})
		}
	}()
	for i := 0; i < 1000; i++ {
		sn, ok := st.snapshot()
		require.True(t, ok)
		ns := sn.nodes["A"]
		if ns.status == graphModel.StatePending {
			continue
		}
		require.Equal(t, string(ns.status), ns.errMsg)
		require.Equal(t, string(ns.status), string(ns.handle))
	}
	wg.Wait()

	// unknown nodes are ignored
	st.setNode("X", nodeState{status: graphModel.StateRunning})
	sn, _ := st.snapshot()
	require.NotContains(t, sn.nodes, "X")
}

func TestSnapshotStatus(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{"A": {}, "B": {"A"}}
	cases := []struct {
		epoch  int64
		nodes  map[string]nodeState
		status graphModel.GraphStatus
	}{
		{
			epoch:  0,
			nodes:  map[string]nodeState{},
			status: graphModel.GraphSucceeded,
		},
		{
			epoch: 0,
			nodes: map[string]nodeState{
				"A": {status: graphModel.StatePending}, "B": {status: graphModel.StatePending},
			},
			status: graphModel.GraphPending,
		},
		{
			epoch: 2,
			nodes: map[string]nodeState{
				"A": {status: graphModel.StateSucceeded, runEpoch: 2},
				"B": {status: graphModel.StateFailed, runEpoch: 1},
			},
			status: graphModel.GraphSucceeded,
		},
		{
			epoch: 2,
			nodes: map[string]nodeState{
				"A": {status: graphModel.StateStopped, runEpoch: 2},
				"B": {status: graphModel.StateStopped, runEpoch: 2},
			},
			status: graphModel.GraphPending,
		},
		{
			epoch: 2,
			nodes: map[string]nodeState{
				"A": {status: graphModel.StateSucceeded, runEpoch: 2},
				"B": {status: graphModel.StatePending, runEpoch: 2},
			},
			status: graphModel.GraphRunning,
		},
	}
	for i, tc := range cases {
		sn := &snapshot{epoch: tc.epoch, deps: deps, nodes: tc.nodes}
		require.Equal(t, tc.status, sn.status(), "case %d", i)
	}
}

func TestPollerDrivesGraph(t *testing.T) {
	t.Parallel()

	clk := clock.NewMock()
	s := newTestSuite(t, WithClock(clk), WithPollInterval(time.Second))
	graphID := s.createGraph(t, []string{"A", "B"}, edge("A", "B"))
	require.NoError(t, s.m.StartGraph(context.Background(), testProject, graphID, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.m.Run(ctx)
	}()

	s.fake.finish("A", graphModel.StateSucceeded)
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		view, err := s.m.ListGraphNodeStatus(ctx, testProject, graphID)
		return err == nil && statusByID(view)["B"].Status == graphModel.StateRunning
	}, 5*time.Second, 10*time.Millisecond)

	s.fake.finish("B", graphModel.StateSucceeded)
	require.Eventually(t, func() bool {
		clk.Add(time.Second)
		view, err := s.m.ListGraphNodeStatus(ctx, testProject, graphID)
		return err == nil && view.Status == graphModel.GraphSucceeded
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	err := <-errCh
	require.True(t, errors.Is(err, context.Canceled), err)
}

func TestPollingResumesAfterRestart(t *testing.T) {
	t.Parallel()

	s := newTestSuite(t)
	ctx := context.Background()
	graphID := s.createGraph(t, []string{"A", "B"}, edge("A", "B"))
	require.NoError(t, s.m.StartGraph(ctx, testProject, graphID, nil))
	require.Equal(t, []string{"A"}, s.fake.takeSubmitted())

	restarted := NewManager(s.store, s.dispatcher).(*managerImpl)
	s.fake.finish("A", graphModel.StateSucceeded)
	require.NoError(t, restarted.refreshAll(ctx))
	require.Equal(t, float64(1), testutil.ToFloat64(restarted.metrics.runningNodes))
	require.Equal(t, 1, testutil.CollectAndCount(restarted.metrics.pollDuration))
	require.Equal(t, []string{"B"}, s.fake.takeSubmitted())

	view, err := restarted.ListGraphNodeStatus(ctx, testProject, graphID)
	require.NoError(t, err)
	nodes := statusByID(view)
	require.Equal(t, graphModel.StateSucceeded, nodes["A"].Status)
	require.Equal(t, graphModel.StateRunning, nodes["B"].Status)
	require.Equal(t, int64(1), view.RunEpoch)

	s.fake.finish("B", graphModel.StateSucceeded)
	require.NoError(t, restarted.refreshAll(ctx))
	view, err = restarted.ListGraphNodeStatus(ctx, testProject, graphID)
	require.NoError(t, err)
	require.Equal(t, graphModel.GraphSucceeded, view.Status)
}
