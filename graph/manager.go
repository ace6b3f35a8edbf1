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
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/failpoint"
	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/clock"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/kuscia"
	"github.com/secretflow/padflow/pkg/logutil"
	"github.com/secretflow/padflow/pkg/orm"
	"github.com/secretflow/padflow/pkg/orm/model"
	"github.com/secretflow/padflow/pkg/promutil"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPollInterval = 3 * time.Second
	maxConcurrentPolls  = 16

	resultSuccess = "success"
	resultError   = "error"
)

// Manager manages computation graphs and drives their execution through a
// JobDispatcher.
type Manager interface {
	CreateGraph(ctx context.Context, param *CreateGraphParam) (string, error)
	DeleteGraph(ctx context.Context, projectID, graphID string) error
	ListGraphs(ctx context.Context, projectID string) ([]*model.Graph, error)
	GetGraphDetail(ctx context.Context, projectID, graphID string) (*GraphDetail, error)
	UpdateGraphMeta(ctx context.Context, projectID, graphID, name string) error
	// FullUpdateGraph replaces the nodes and edges of an idle graph.
	FullUpdateGraph(ctx context.Context, param *FullUpdateGraphParam) error
	UpdateGraphNode(ctx context.Context, projectID, graphID string, node *GraphNodeParam) error

	// StartGraph runs targets and their transitive dependencies, all nodes
	// when targets is empty.
	StartGraph(ctx context.Context, projectID, graphID string, targets []string) error
	// StopGraph stops the given nodes, all nodes when nodeIDs is empty.
	StopGraph(ctx context.Context, projectID, graphID string, nodeIDs []string) error
	ListGraphNodeStatus(ctx context.Context, projectID, graphID string) (*GraphStatusView, error)
	// RefreshGraph polls the running nodes and submits the nodes that became
	// runnable.
	RefreshGraph(ctx context.Context, projectID, graphID string) (*GraphStatusView, error)
	GetGraphNodeOutput(ctx context.Context, projectID, graphID, graphNodeID string) (*GraphNodeOutput, error)
	GetGraphNodeLogs(ctx context.Context, projectID, graphID, graphNodeID string) (*GraphNodeLogs, error)

	// Run polls the running graphs until ctx is done.
	Run(ctx context.Context) error
}

type managerImpl struct {
	store        orm.Client
	dispatcher   kuscia.JobDispatcher
	clock        clock.Clock
	pollInterval time.Duration
	metrics      *metrics
	logger       *zap.Logger

	tableMu sync.Mutex
	states  map[graphKey]*graphState
}

// Option configures the Manager.
type Option func(*managerImpl)

// WithClock sets the clock driving the status poller.
func WithClock(clk clock.Clock) Option {
	return func(m *managerImpl) {
		m.clock = clk
	}
}

// WithPollInterval sets the status poll interval.
func WithPollInterval(interval time.Duration) Option {
	return func(m *managerImpl) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// WithMetricFactory registers the metrics with factory.
func WithMetricFactory(factory promutil.Factory) Option {
	return func(m *managerImpl) {
		m.metrics = newMetrics(factory)
	}
}

// NewManager creates a graph Manager.
func NewManager(store orm.Client, dispatcher kuscia.JobDispatcher, opts ...Option) Manager {
	m := &managerImpl{
		store:        store,
		dispatcher:   dispatcher,
		clock:        clock.New(),
		pollInterval: defaultPollInterval,
		logger:       logutil.WithComponent("graph-manager"),
		states:       make(map[graphKey]*graphState),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = newMetrics(promutil.NewFactory(promutil.NewOnlyRegistry()))
	}
	return m
}

func (m *managerImpl) entry(key graphKey) *graphState {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()
	st, ok := m.states[key]
	if !ok {
		st = &graphState{}
		m.states[key] = st
	}
	return st
}

func (m *managerImpl) dropEntry(key graphKey, st *graphState) {
	m.tableMu.Lock()
	defer m.tableMu.Unlock()
	if m.states[key] == st {
		delete(m.states, key)
	}
}

func (m *managerImpl) loadGraph(ctx context.Context, key graphKey) (*model.Graph, []*model.GraphNode, error) {
	graph, err := m.store.GetGraph(ctx, key.projectID, key.graphID)
	if err != nil {
		if orm.IsNotFoundError(err) {
			return nil, nil, errors.ErrGraphNotFound.GenWithStackByArgs(key.graphID, key.projectID)
		}
		return nil, nil, err
	}
	nodes, err := m.store.QueryGraphNodes(ctx, key.projectID, key.graphID)
	if err != nil {
		return nil, nil, err
	}
	return graph, nodes, nil
}

// lockGraph takes the operation lock of the graph and refreshes its state
// from the store. The caller must release st.opMu.
func (m *managerImpl) lockGraph(
	ctx context.Context, key graphKey,
) (st *graphState, graph *model.Graph, nodes []*model.GraphNode, err error) {
	st = m.entry(key)
	st.opMu.Lock()
	graph, nodes, err = m.loadGraph(ctx, key)
	if err != nil {
		st.opMu.Unlock()
		if errors.Is(err, errors.ErrGraphNotFound) {
			m.dropEntry(key, st)
		}
		return nil, nil, nil, err
	}
	st.reset(graph, nodes)
	return st, graph, nodes, nil
}

// readState returns a snapshot without taking the operation lock.
func (m *managerImpl) readState(ctx context.Context, key graphKey) (*snapshot, error) {
	st := m.entry(key)
	if sn, ok := st.snapshot(); ok {
		return sn, nil
	}
	graph, nodes, err := m.loadGraph(ctx, key)
	if err != nil {
		if errors.Is(err, errors.ErrGraphNotFound) {
			m.dropEntry(key, st)
		}
		return nil, err
	}
	st.resetIfUnloaded(graph, nodes)
	sn, _ := st.snapshot()
	return sn, nil
}

func mustSnapshot(st *graphState) *snapshot {
	sn, ok := st.snapshot()
	if !ok {
		panic("graph state is not loaded")
	}
	return sn
}

func rowsByID(nodes []*model.GraphNode) map[string]*model.GraphNode {
	rows := make(map[string]*model.GraphNode, len(nodes))
	for _, n := range nodes {
		rows[n.GraphNodeID] = n
	}
	return rows
}

func nodeIDsOf(nodes []*model.GraphNode) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.GraphNodeID)
	}
	return ids
}

// CreateGraph implements Manager.CreateGraph.
func (m *managerImpl) CreateGraph(ctx context.Context, param *CreateGraphParam) (string, error) {
	if param == nil {
		return "", errors.ErrInvalidArgument.GenWithStackByArgs("empty graph param")
	}
	if err := param.Validate(); err != nil {
		return "", err
	}
	if err := graphModel.Validate(topologyOf(paramNodeIDs(param.Nodes), param.Edges)); err != nil {
		return "", err
	}

	graphID := uuid.NewString()
	nodes := make([]*model.GraphNode, 0, len(param.Nodes))
	for _, n := range param.Nodes {
		nodes = append(nodes, n.toModel(param.ProjectID, graphID))
	}
	err := m.store.Transaction(ctx, func(tx orm.Client) error {
		if err := tx.CreateGraph(ctx, &model.Graph{
			ProjectID: param.ProjectID,
			GraphID:   graphID,
			Name:      param.Name,
			OwnerID:   param.OwnerID,
			Edges:     param.Edges,
		}); err != nil {
			return err
		}
		return tx.CreateGraphNodes(ctx, nodes)
	})
	if err != nil {
		return "", err
	}
	m.logger.Info("graph created", zap.String("project", param.ProjectID),
		zap.String("graph", graphID), zap.Int("nodes", len(nodes)))
	return graphID, nil
}

// DeleteGraph implements Manager.DeleteGraph.
func (m *managerImpl) DeleteGraph(ctx context.Context, projectID, graphID string) error {
	key := graphKey{projectID: projectID, graphID: graphID}
	st, _, _, err := m.lockGraph(ctx, key)
	if err != nil {
		return err
	}
	defer st.opMu.Unlock()

	if len(mustSnapshot(st).nodesIn(graphModel.StateRunning)) > 0 {
		return errors.ErrGraphExecutionInProgress.GenWithStackByArgs(key.String())
	}
	err = m.store.Transaction(ctx, func(tx orm.Client) error {
		if _, err := tx.DeleteGraphNodes(ctx, projectID, graphID); err != nil {
			return err
		}
		_, err := tx.DeleteGraph(ctx, projectID, graphID)
		return err
	})
	if err != nil {
		return err
	}
	m.dropEntry(key, st)
	m.logger.Info("graph deleted", zap.Stringer("graph", key))
	return nil
}

// ListGraphs implements Manager.ListGraphs.
func (m *managerImpl) ListGraphs(ctx context.Context, projectID string) ([]*model.Graph, error) {
	return m.store.QueryGraphsByProject(ctx, projectID)
}

// GetGraphDetail implements Manager.GetGraphDetail.
func (m *managerImpl) GetGraphDetail(ctx context.Context, projectID, graphID string) (*GraphDetail, error) {
	key := graphKey{projectID: projectID, graphID: graphID}
	graph, nodes, err := m.loadGraph(ctx, key)
	if err != nil {
		return nil, err
	}
	sn, err := m.readState(ctx, key)
	if err != nil {
		return nil, err
	}
	return &GraphDetail{Graph: graph, Nodes: nodes, Status: sn.status()}, nil
}

// UpdateGraphMeta implements Manager.UpdateGraphMeta.
func (m *managerImpl) UpdateGraphMeta(ctx context.Context, projectID, graphID, name string) error {
	if len(name) > 256 {
		return errors.ErrInvalidArgument.GenWithStackByArgs("graph name is too long")
	}
	key := graphKey{projectID: projectID, graphID: graphID}
	st, _, _, err := m.lockGraph(ctx, key)
	if err != nil {
		return err
	}
	defer st.opMu.Unlock()
	return m.store.UpdateGraph(ctx, projectID, graphID, model.KeyValueMap{"name": name})
}

// FullUpdateGraph implements Manager.FullUpdateGraph. Nodes kept by the
// update keep their execution state.
func (m *managerImpl) FullUpdateGraph(ctx context.Context, param *FullUpdateGraphParam) error {
	if param == nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs("empty graph param")
	}
	if err := param.Validate(); err != nil {
		return err
	}
	key := graphKey{projectID: param.ProjectID, graphID: param.GraphID}
	st, _, nodes, err := m.lockGraph(ctx, key)
	if err != nil {
		return err
	}
	defer st.opMu.Unlock()

	if len(mustSnapshot(st).nodesIn(graphModel.StateRunning)) > 0 {
		return errors.ErrGraphExecutionInProgress.GenWithStackByArgs(key.String())
	}
	if err := graphModel.Validate(topologyOf(paramNodeIDs(param.Nodes), param.Edges)); err != nil {
		return err
	}

	kept := make(map[string]struct{}, len(param.Nodes))
	for _, n := range param.Nodes {
		kept[n.GraphNodeID] = struct{}{}
	}
	var removed []string
	for _, n := range nodes {
		if _, ok := kept[n.GraphNodeID]; !ok {
			removed = append(removed, n.GraphNodeID)
		}
	}

	err = m.store.Transaction(ctx, func(tx orm.Client) error {
		if err := tx.UpdateGraph(ctx, param.ProjectID, param.GraphID,
			model.KeyValueMap{"edges": model.EdgeList(param.Edges)}); err != nil {
			return err
		}
		if _, err := tx.DeleteGraphNodesByIDs(ctx, param.ProjectID, param.GraphID, removed); err != nil {
			return err
		}
		for _, n := range param.Nodes {
			if err := tx.UpsertGraphNode(ctx, n.toModel(param.ProjectID, param.GraphID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	graph, nodes, err := m.loadGraph(ctx, key)
	if err != nil {
		return err
	}
	st.reset(graph, nodes)
	m.logger.Info("graph updated", zap.Stringer("graph", key),
		zap.Int("nodes", len(nodes)), zap.Strings("removed", removed))
	return nil
}

// UpdateGraphNode implements Manager.UpdateGraphNode.
func (m *managerImpl) UpdateGraphNode(ctx context.Context, projectID, graphID string, node *GraphNodeParam) error {
	if node == nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs("empty graph node param")
	}
	if err := wrapValidation(node.Validate()); err != nil {
		return err
	}
	key := graphKey{projectID: projectID, graphID: graphID}
	st, _, _, err := m.lockGraph(ctx, key)
	if err != nil {
		return err
	}
	defer st.opMu.Unlock()

	sn := mustSnapshot(st)
	if len(sn.nodesIn(graphModel.StateRunning)) > 0 {
		return errors.ErrGraphExecutionInProgress.GenWithStackByArgs(key.String())
	}
	if _, ok := sn.nodes[node.GraphNodeID]; !ok {
		return errors.ErrGraphNodeNotFound.GenWithStackByArgs(node.GraphNodeID)
	}
	_, err = m.store.UpdateGraphNode(ctx, projectID, graphID, node.GraphNodeID,
		node.toModel(projectID, graphID).DefMap())
	return err
}

// StartGraph implements Manager.StartGraph. While the current plan can still
// progress, its nodes outside the new closure join the new epoch with their
// state kept.
func (m *managerImpl) StartGraph(ctx context.Context, projectID, graphID string, targets []string) error {
	key := graphKey{projectID: projectID, graphID: graphID}
	st, graph, nodes, err := m.lockGraph(ctx, key)
	if err != nil {
		return err
	}
	defer st.opMu.Unlock()

	topo := topologyOf(nodeIDsOf(nodes), graph.Edges)
	if err := graphModel.Validate(topo); err != nil {
		return err
	}
	closure, err := graphModel.Closure(topo, targets)
	if err != nil {
		return err
	}
	if err := graphModel.Validate(closure); err != nil {
		return err
	}
	sn := mustSnapshot(st)
	for _, id := range closure.Nodes {
		if sn.nodes[id].status == graphModel.StateRunning {
			return errors.ErrGraphExecutionInProgress.GenWithStackByArgs(key.String())
		}
	}

	carried := sn.liveOutside(closure.Nodes)

	epoch, err := m.store.GenGraphEpoch(ctx, projectID, graphID)
	if err != nil {
		return err
	}
	err = m.store.Transaction(ctx, func(tx orm.Client) error {
		if err := tx.UpdateGraph(ctx, projectID, graphID, model.KeyValueMap{"run_epoch": epoch}); err != nil {
			return err
		}
		for _, id := range closure.Nodes {
			if _, err := tx.UpdateGraphNode(ctx, projectID, graphID, id, pendingState(epoch).values()); err != nil {
				return err
			}
		}
		for _, id := range carried {
			if _, err := tx.UpdateGraphNode(ctx, projectID, graphID, id,
				model.KeyValueMap{"run_epoch": epoch}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	st.startEpoch(epoch, closure.Nodes, carried)
	m.logger.Info("graph started", zap.Stringer("graph", key), zap.Int64("epoch", epoch),
		zap.Strings("plan", closure.Nodes), zap.Strings("carried", carried))

	return m.submitRunnable(ctx, key, st, rowsByID(nodes))
}

// submitRunnable submits the plan nodes whose dependencies all succeeded. A
// failed submission only fails its own node. A job whose state cannot be
// persisted is cancelled, the node stays pending and the poller submits it
// again.
func (m *managerImpl) submitRunnable(
	ctx context.Context, key graphKey, st *graphState, rows map[string]*model.GraphNode,
) error {
	sn := mustSnapshot(st)
	for _, id := range sn.runnable() {
		row, ok := rows[id]
		if !ok {
			continue
		}
		ns := sn.nodes[id]
		handle, err := m.submitNode(ctx, row)
		if err != nil {
			m.metrics.submitCounter.WithLabelValues(resultError).Inc()
			m.logger.Warn("submit graph node failed", zap.Stringer("graph", key),
				zap.String("graph-node", id), logutil.ShortError(err))
			ns.status = graphModel.StateFailed
			ns.errMsg = err.Error()
		} else {
			m.metrics.submitCounter.WithLabelValues(resultSuccess).Inc()
			m.logger.Info("graph node submitted", zap.Stringer("graph", key),
				zap.String("graph-node", id), zap.String("job", string(handle)))
			ns.status = graphModel.StateRunning
			ns.handle = handle
			ns.errMsg = ""
		}
		if err := m.setNode(ctx, key, st, id, ns); err != nil {
			if ns.status == graphModel.StateRunning {
				m.abandonJob(ctx, key, id, ns.handle)
			}
			return err
		}
	}
	return nil
}

func (m *managerImpl) abandonJob(ctx context.Context, key graphKey, id string, handle kuscia.JobHandle) {
	ack, err := m.dispatcher.Cancel(ctx, handle)
	m.logger.Warn("cancel unrecorded job", zap.Stringer("graph", key), zap.String("graph-node", id),
		zap.String("job", string(handle)), zap.Bool("ack", ack), logutil.ShortError(err))
}

func (m *managerImpl) submitNode(ctx context.Context, row *model.GraphNode) (kuscia.JobHandle, error) {
	failpoint.Inject("submitGraphNodeFailed", func() {
		failpoint.Return(kuscia.JobHandle(""), errors.ErrDispatcherFailed.GenWithStackByArgs("injected"))
	})
	def, err := componentDefinition(row)
	if err != nil {
		return "", err
	}
	return m.dispatcher.Submit(ctx, row.GraphNodeID, def)
}

type componentDef struct {
	Code    string          `json:"code"`
	Label   string          `json:"label,omitempty"`
	NodeDef json.RawMessage `json:"nodeDef,omitempty"`
}

func componentDefinition(row *model.GraphNode) ([]byte, error) {
	def := componentDef{Code: row.Code, Label: row.Label}
	if len(row.NodeDef) > 0 {
		def.NodeDef = json.RawMessage(row.NodeDef)
	}
	b, err := json.Marshal(def)
	if err != nil {
		return nil, errors.ErrInvalidArgument.Wrap(err).GenWithStackByArgs("node definition of " + row.GraphNodeID)
	}
	return b, nil
}

// setNode persists the node state and then publishes it to readers.
func (m *managerImpl) setNode(ctx context.Context, key graphKey, st *graphState, id string, ns nodeState) error {
	if _, err := m.store.UpdateGraphNode(ctx, key.projectID, key.graphID, id, ns.values()); err != nil {
		m.logger.Error("persist graph node state failed", zap.Stringer("graph", key),
			zap.String("graph-node", id), zap.String("status", string(ns.status)), logutil.ShortError(err))
		return err
	}
	st.setNode(id, ns)
	return nil
}

// StopGraph implements Manager.StopGraph. Nodes not running stop at once,
// running nodes stop when the dispatcher acknowledges the cancellation.
func (m *managerImpl) StopGraph(ctx context.Context, projectID, graphID string, nodeIDs []string) error {
	key := graphKey{projectID: projectID, graphID: graphID}
	st, _, nodes, err := m.lockGraph(ctx, key)
	if err != nil {
		return err
	}
	defer st.opMu.Unlock()

	sn := mustSnapshot(st)
	if len(nodeIDs) == 0 {
		nodeIDs = nodeIDsOf(nodes)
	}
	for _, id := range nodeIDs {
		if _, ok := sn.nodes[id]; !ok {
			return errors.ErrGraphNodeNotFound.GenWithStackByArgs(id)
		}
	}

	var errs error
	for _, id := range nodeIDs {
		ns := sn.nodes[id]
		ns.stopRequested = true
		switch ns.status {
		case graphModel.StatePending:
			ns.status = graphModel.StateStopped
		case graphModel.StateRunning:
			ack, err := m.dispatcher.Cancel(ctx, ns.handle)
			if err != nil {
				errs = multierr.Append(errs, err)
			} else if ack {
				ns.status = graphModel.StateStopped
			} else {
				m.logger.Info("cancel not acknowledged, keep polling", zap.Stringer("graph", key),
					zap.String("graph-node", id), zap.String("job", string(ns.handle)))
			}
		}
		if err := m.setNode(ctx, key, st, id, ns); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	m.logger.Info("graph stop requested", zap.Stringer("graph", key),
		zap.Strings("nodes", nodeIDs), logutil.ShortError(errs))
	return errs
}

// ListGraphNodeStatus implements Manager.ListGraphNodeStatus.
func (m *managerImpl) ListGraphNodeStatus(ctx context.Context, projectID, graphID string) (*GraphStatusView, error) {
	key := graphKey{projectID: projectID, graphID: graphID}
	sn, err := m.readState(ctx, key)
	if err != nil {
		return nil, err
	}
	return sn.view(key), nil
}

type pollResult struct {
	state graphModel.ExecutionState
	err   error
}

// RefreshGraph implements Manager.RefreshGraph.
func (m *managerImpl) RefreshGraph(ctx context.Context, projectID, graphID string) (*GraphStatusView, error) {
	key := graphKey{projectID: projectID, graphID: graphID}
	st, _, nodes, err := m.lockGraph(ctx, key)
	if err != nil {
		return nil, err
	}
	defer st.opMu.Unlock()

	sn := mustSnapshot(st)
	running := sn.nodesIn(graphModel.StateRunning)
	results := make([]pollResult, len(running))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPolls)
	for i, id := range running {
		i, handle := i, sn.nodes[id].handle
		g.Go(func() error {
			state, err := m.dispatcher.QueryStatus(gctx, handle)
			results[i] = pollResult{state: state, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range running {
		ns, res := sn.nodes[id], results[i]
		switch {
		case res.err != nil && kuscia.IsRemoteUnavailable(res.err):
			m.logger.Warn("poll graph node unavailable, retry later", zap.Stringer("graph", key),
				zap.String("graph-node", id), logutil.ShortError(res.err))
			continue
		case res.err != nil:
			ns.status = graphModel.StateFailed
			ns.errMsg = res.err.Error()
		case res.state.IsTerminated():
			ns.status = res.state
		default:
			continue
		}
		m.logger.Info("graph node state changed", zap.Stringer("graph", key),
			zap.String("graph-node", id), zap.String("status", string(ns.status)))
		if err := m.setNode(ctx, key, st, id, ns); err != nil {
			return nil, err
		}
	}

	if err := m.submitRunnable(ctx, key, st, rowsByID(nodes)); err != nil {
		return nil, err
	}
	return mustSnapshot(st).view(key), nil
}

// nodeJob returns the state of one node from a snapshot.
func (m *managerImpl) nodeJob(ctx context.Context, key graphKey, graphNodeID string) (nodeState, error) {
	sn, err := m.readState(ctx, key)
	if err != nil {
		return nodeState{}, err
	}
	ns, ok := sn.nodes[graphNodeID]
	if !ok {
		return nodeState{}, errors.ErrGraphNodeNotFound.GenWithStackByArgs(graphNodeID)
	}
	return ns, nil
}

// GetGraphNodeOutput implements Manager.GetGraphNodeOutput.
func (m *managerImpl) GetGraphNodeOutput(
	ctx context.Context, projectID, graphID, graphNodeID string,
) (*GraphNodeOutput, error) {
	ns, err := m.nodeJob(ctx, graphKey{projectID: projectID, graphID: graphID}, graphNodeID)
	if err != nil {
		return nil, err
	}
	out := &GraphNodeOutput{
		GraphNodeID: graphNodeID,
		Status:      ns.status,
		JobHandle:   string(ns.handle),
		Outputs:     []kuscia.DistData{},
	}
	if ns.status != graphModel.StateSucceeded || ns.handle == "" {
		return out, nil
	}
	outputs, err := m.dispatcher.QueryOutput(ctx, ns.handle)
	if err != nil {
		return nil, err
	}
	if len(outputs) > 0 {
		out.Outputs = outputs
	}
	return out, nil
}

// GetGraphNodeLogs implements Manager.GetGraphNodeLogs.
func (m *managerImpl) GetGraphNodeLogs(
	ctx context.Context, projectID, graphID, graphNodeID string,
) (*GraphNodeLogs, error) {
	ns, err := m.nodeJob(ctx, graphKey{projectID: projectID, graphID: graphID}, graphNodeID)
	if err != nil {
		return nil, err
	}
	logs := &GraphNodeLogs{
		GraphNodeID: graphNodeID,
		Status:      ns.status,
		JobHandle:   string(ns.handle),
		Logs:        []string{},
	}
	if ns.handle == "" {
		return logs, nil
	}
	lines, err := m.dispatcher.QueryLogs(ctx, ns.handle)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		logs.Logs = lines
	}
	return logs, nil
}
