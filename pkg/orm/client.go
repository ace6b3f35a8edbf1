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

package orm

import (
	"context"
	"database/sql"

	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/orm/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var globalModels = []interface{}{
	&model.Node{},
	&model.NodeRoute{},
	&model.Graph{},
	&model.GraphNode{},
	&model.RunEpoch{},
}

// Client defines an interface that has the ability to manage every kind of
// logic abstraction in metastore, including node, node route, graph and
// graph node.
type Client interface {
	// NodeClient is the interface to operate node.
	NodeClient
	// NodeRouteClient is the interface to operate node route.
	NodeRouteClient
	// GraphClient is the interface to operate graph and graph node.
	GraphClient

	// Transaction runs fn with a client bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise,
	// including on panic.
	Transaction(ctx context.Context, fn func(tx Client) error) error

	// Initialize creates the backend tables if not exist.
	Initialize(ctx context.Context) error
	Close() error
}

// NodeClient defines interface that manages node in metastore
type NodeClient interface {
	CreateNode(ctx context.Context, node *model.Node) error
	DeleteNode(ctx context.Context, nodeID string) (Result, error)
	GetNodeByID(ctx context.Context, nodeID string) (*model.Node, error)
	QueryNodes(ctx context.Context) ([]*model.Node, error)
}

// NodeRouteClient defines interface that manages node route in metastore
type NodeRouteClient interface {
	// UpsertNodeRoute finds the route by (src, dst) and refreshes its
	// addresses, or inserts it if absent. It returns the route id.
	UpsertNodeRoute(ctx context.Context, route *model.NodeRoute) (int64, error)
	DeleteNodeRoute(ctx context.Context, routeID int64) (Result, error)
	GetNodeRouteByID(ctx context.Context, routeID int64) (*model.NodeRoute, error)
	GetNodeRouteBySrcDst(ctx context.Context, srcNodeID, dstNodeID string) (*model.NodeRoute, error)
	QueryNodeRoutesBySrc(ctx context.Context, srcNodeID string) ([]*model.NodeRoute, error)
}

// GraphClient defines interface that manages graph in metastore
type GraphClient interface {
	CreateGraph(ctx context.Context, graph *model.Graph) error
	UpdateGraph(ctx context.Context, projectID, graphID string, values model.KeyValueMap) error
	DeleteGraph(ctx context.Context, projectID, graphID string) (Result, error)
	GetGraph(ctx context.Context, projectID, graphID string) (*model.Graph, error)
	QueryGraphsByProject(ctx context.Context, projectID string) ([]*model.Graph, error)
	// GenGraphEpoch returns a new run epoch of the graph.
	GenGraphEpoch(ctx context.Context, projectID, graphID string) (int64, error)

	CreateGraphNodes(ctx context.Context, nodes []*model.GraphNode) error
	UpsertGraphNode(ctx context.Context, node *model.GraphNode) error
	UpdateGraphNode(ctx context.Context, projectID, graphID, graphNodeID string, values model.KeyValueMap) (Result, error)
	DeleteGraphNodes(ctx context.Context, projectID, graphID string) (Result, error)
	DeleteGraphNodesByIDs(ctx context.Context, projectID, graphID string, graphNodeIDs []string) (Result, error)
	GetGraphNode(ctx context.Context, projectID, graphID, graphNodeID string) (*model.GraphNode, error)
	QueryGraphNodes(ctx context.Context, projectID, graphID string) ([]*model.GraphNode, error)
	QueryGraphNodesByStatus(ctx context.Context, status graphModel.ExecutionState) ([]*model.GraphNode, error)
	// QueryPlanNodesByStatus returns the nodes in the given status that are
	// stamped with the current run epoch of their graph.
	QueryPlanNodesByStatus(ctx context.Context, status graphModel.ExecutionState) ([]*model.GraphNode, error)
}

// NewClient return the client to operate padflow metastore
func NewClient(db *sql.DB, storeType string) (Client, error) {
	if db == nil {
		return nil, errors.ErrMetaParamsInvalid.GenWithStackByArgs("input db is nil")
	}
	ormDB, err := NewGormDB(db, storeType, 0)
	if err != nil {
		return nil, err
	}
	return newClient(ormDB), nil
}

func newClient(db *gorm.DB) *metaOpsClient {
	return &metaOpsClient{db: db}
}

// metaOpsClient is the meta operations client for padflow metastore
type metaOpsClient struct {
	// gorm claim to be thread safe
	db *gorm.DB
}

// Initialize creates the backend tables if not exist.
func (c *metaOpsClient) Initialize(ctx context.Context) error {
	if err := c.db.WithContext(ctx).
		AutoMigrate(globalModels...); err != nil {
		return errors.ErrMetaOpFail.Wrap(err)
	}
	return nil
}

func (c *metaOpsClient) Close() error {
	// DON NOT CLOSE the underlying connection
	return nil
}

// Transaction implements Client.Transaction
func (c *metaOpsClient) Transaction(ctx context.Context, fn func(tx Client) error) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newClient(tx))
	})
}

// ///////////////////////////// Node Operation
// CreateNode insert the model.Node
func (c *metaOpsClient) CreateNode(ctx context.Context, node *model.Node) error {
	if node == nil {
		return errors.ErrMetaParamsInvalid.GenWithStackByArgs("input node is nil")
	}
	if err := c.db.WithContext(ctx).
		Create(node).Error; err != nil {
		if IsDuplicateEntryError(err) {
			return errors.ErrMetaEntryAlreadyExists.Wrap(err)
		}
		return errors.ErrMetaOpFail.Wrap(err)
	}

	return nil
}

// DeleteNode delete the model.Node
func (c *metaOpsClient) DeleteNode(ctx context.Context, nodeID string) (Result, error) {
	result := c.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Delete(&model.Node{})
	if result.Error != nil {
		return nil, errors.ErrMetaOpFail.Wrap(result.Error)
	}

	return &ormResult{rowsAffected: result.RowsAffected}, nil
}

// GetNodeByID query node by nodeID
func (c *metaOpsClient) GetNodeByID(ctx context.Context, nodeID string) (*model.Node, error) {
	var node model.Node
	if err := c.db.WithContext(ctx).
		Where("node_id = ?", nodeID).
		First(&node).Error; err != nil {
		return nil, wrapQueryError(err)
	}

	return &node, nil
}

// QueryNodes query all nodes
func (c *metaOpsClient) QueryNodes(ctx context.Context) ([]*model.Node, error) {
	var nodes []*model.Node
	if err := c.db.WithContext(ctx).
		Order("node_id").
		Find(&nodes).Error; err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}

	return nodes, nil
}

// ///////////////////////////// Node Route Operation
// UpsertNodeRoute implements NodeRouteClient.UpsertNodeRoute
func (c *metaOpsClient) UpsertNodeRoute(ctx context.Context, route *model.NodeRoute) (int64, error) {
	if route == nil {
		return 0, errors.ErrMetaParamsInvalid.GenWithStackByArgs("input node route is nil")
	}

	routeID, err := c.refreshNodeRoute(ctx, route)
	if !IsNotFoundError(err) {
		return routeID, err
	}

	err = c.db.WithContext(ctx).
		Create(route).Error
	if err == nil {
		return route.RouteID, nil
	}
	if !IsDuplicateEntryError(err) {
		return 0, errors.ErrMetaOpFail.Wrap(err)
	}
	// lost the insert to a concurrent creator of the same pair
	return c.refreshNodeRoute(ctx, route)
}

// refreshNodeRoute updates the addresses of the existing (src, dst) route.
func (c *metaOpsClient) refreshNodeRoute(ctx context.Context, route *model.NodeRoute) (int64, error) {
	existing, err := c.GetNodeRouteBySrcDst(ctx, route.SrcNodeID, route.DstNodeID)
	if err != nil {
		return 0, err
	}
	if err := c.db.WithContext(ctx).
		Model(&model.NodeRoute{}).
		Where("route_id = ?", existing.RouteID).
		Updates(route.AddressMap()).Error; err != nil {
		return 0, errors.ErrMetaOpFail.Wrap(err)
	}
	route.RouteID = existing.RouteID
	return existing.RouteID, nil
}

// DeleteNodeRoute delete the route by id
func (c *metaOpsClient) DeleteNodeRoute(ctx context.Context, routeID int64) (Result, error) {
	result := c.db.WithContext(ctx).
		Where("route_id = ?", routeID).
		Delete(&model.NodeRoute{})
	if result.Error != nil {
		return nil, errors.ErrMetaOpFail.Wrap(result.Error)
	}

	return &ormResult{rowsAffected: result.RowsAffected}, nil
}

// GetNodeRouteByID query route by id
func (c *metaOpsClient) GetNodeRouteByID(ctx context.Context, routeID int64) (*model.NodeRoute, error) {
	var route model.NodeRoute
	if err := c.db.WithContext(ctx).
		Where("route_id = ?", routeID).
		First(&route).Error; err != nil {
		return nil, wrapQueryError(err)
	}

	return &route, nil
}

// GetNodeRouteBySrcDst query route by its ordered endpoint pair
func (c *metaOpsClient) GetNodeRouteBySrcDst(ctx context.Context, srcNodeID, dstNodeID string) (*model.NodeRoute, error) {
	var route model.NodeRoute
	if err := c.db.WithContext(ctx).
		Where("src_node_id = ? AND dst_node_id = ?", srcNodeID, dstNodeID).
		First(&route).Error; err != nil {
		return nil, wrapQueryError(err)
	}

	return &route, nil
}

// QueryNodeRoutesBySrc query all routes starting from srcNodeID
func (c *metaOpsClient) QueryNodeRoutesBySrc(ctx context.Context, srcNodeID string) ([]*model.NodeRoute, error) {
	var routes []*model.NodeRoute
	if err := c.db.WithContext(ctx).
		Where("src_node_id = ?", srcNodeID).
		Order("route_id").
		Find(&routes).Error; err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}

	return routes, nil
}

// ///////////////////////////// Graph Operation
// CreateGraph insert the model.Graph
func (c *metaOpsClient) CreateGraph(ctx context.Context, graph *model.Graph) error {
	if graph == nil {
		return errors.ErrMetaParamsInvalid.GenWithStackByArgs("input graph is nil")
	}
	if err := c.db.WithContext(ctx).
		Create(graph).Error; err != nil {
		if IsDuplicateEntryError(err) {
			return errors.ErrMetaEntryAlreadyExists.Wrap(err)
		}
		return errors.ErrMetaOpFail.Wrap(err)
	}

	return nil
}

// UpdateGraph update the graph columns in values
func (c *metaOpsClient) UpdateGraph(
	ctx context.Context, projectID, graphID string, values model.KeyValueMap,
) error {
	if err := c.db.WithContext(ctx).
		Model(&model.Graph{}).
		Where("project_id = ? AND graph_id = ?", projectID, graphID).
		Updates(values).Error; err != nil {
		return errors.ErrMetaOpFail.Wrap(err)
	}

	return nil
}

// DeleteGraph delete the graph row, the caller removes its nodes in the same
// transaction
func (c *metaOpsClient) DeleteGraph(ctx context.Context, projectID, graphID string) (Result, error) {
	result := c.db.WithContext(ctx).
		Where("project_id = ? AND graph_id = ?", projectID, graphID).
		Delete(&model.Graph{})
	if result.Error != nil {
		return nil, errors.ErrMetaOpFail.Wrap(result.Error)
	}

	return &ormResult{rowsAffected: result.RowsAffected}, nil
}

// GetGraph query graph by its composite key
func (c *metaOpsClient) GetGraph(ctx context.Context, projectID, graphID string) (*model.Graph, error) {
	var graph model.Graph
	if err := c.db.WithContext(ctx).
		Where("project_id = ? AND graph_id = ?", projectID, graphID).
		First(&graph).Error; err != nil {
		return nil, wrapQueryError(err)
	}

	return &graph, nil
}

// QueryGraphsByProject query all graphs of projectID
func (c *metaOpsClient) QueryGraphsByProject(ctx context.Context, projectID string) ([]*model.Graph, error) {
	var graphs []*model.Graph
	if err := c.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("seq_id").
		Find(&graphs).Error; err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}

	return graphs, nil
}

// GenGraphEpoch implements GraphClient.GenGraphEpoch
func (c *metaOpsClient) GenGraphEpoch(ctx context.Context, projectID, graphID string) (int64, error) {
	return model.NextRunEpoch(ctx, c.db, projectID, graphID)
}

// CreateGraphNodes insert the nodes in one statement
func (c *metaOpsClient) CreateGraphNodes(ctx context.Context, nodes []*model.GraphNode) error {
	if len(nodes) == 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).
		Create(nodes).Error; err != nil {
		return errors.ErrMetaOpFail.Wrap(err)
	}

	return nil
}

// UpsertGraphNode insert the node or refresh its definition columns
func (c *metaOpsClient) UpsertGraphNode(ctx context.Context, node *model.GraphNode) error {
	if node == nil {
		return errors.ErrMetaParamsInvalid.GenWithStackByArgs("input graph node is nil")
	}

	if err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "project_id"}, {Name: "graph_id"}, {Name: "graph_node_id"},
			},
			DoUpdates: clause.AssignmentColumns(model.GraphNodeDefColumns),
		}).Create(node).Error; err != nil {
		return errors.ErrMetaOpFail.Wrap(err)
	}

	return nil
}

// UpdateGraphNode update the node columns in values
func (c *metaOpsClient) UpdateGraphNode(
	ctx context.Context, projectID, graphID, graphNodeID string, values model.KeyValueMap,
) (Result, error) {
	result := c.db.WithContext(ctx).
		Model(&model.GraphNode{}).
		Where("project_id = ? AND graph_id = ? AND graph_node_id = ?", projectID, graphID, graphNodeID).
		Updates(values)
	if result.Error != nil {
		return nil, errors.ErrMetaOpFail.Wrap(result.Error)
	}

	return &ormResult{rowsAffected: result.RowsAffected}, nil
}

// DeleteGraphNodes delete all nodes of the graph
func (c *metaOpsClient) DeleteGraphNodes(ctx context.Context, projectID, graphID string) (Result, error) {
	result := c.db.WithContext(ctx).
		Where("project_id = ? AND graph_id = ?", projectID, graphID).
		Delete(&model.GraphNode{})
	if result.Error != nil {
		return nil, errors.ErrMetaOpFail.Wrap(result.Error)
	}

	return &ormResult{rowsAffected: result.RowsAffected}, nil
}

// DeleteGraphNodesByIDs delete the given nodes of the graph
func (c *metaOpsClient) DeleteGraphNodesByIDs(
	ctx context.Context, projectID, graphID string, graphNodeIDs []string,
) (Result, error) {
	if len(graphNodeIDs) == 0 {
		return &ormResult{}, nil
	}
	result := c.db.WithContext(ctx).
		Where("project_id = ? AND graph_id = ? AND graph_node_id IN ?", projectID, graphID, graphNodeIDs).
		Delete(&model.GraphNode{})
	if result.Error != nil {
		return nil, errors.ErrMetaOpFail.Wrap(result.Error)
	}

	return &ormResult{rowsAffected: result.RowsAffected}, nil
}

// GetGraphNode query one graph node
func (c *metaOpsClient) GetGraphNode(
	ctx context.Context, projectID, graphID, graphNodeID string,
) (*model.GraphNode, error) {
	var node model.GraphNode
	if err := c.db.WithContext(ctx).
		Where("project_id = ? AND graph_id = ? AND graph_node_id = ?", projectID, graphID, graphNodeID).
		First(&node).Error; err != nil {
		return nil, wrapQueryError(err)
	}

	return &node, nil
}

// QueryGraphNodes query all nodes of the graph
func (c *metaOpsClient) QueryGraphNodes(ctx context.Context, projectID, graphID string) ([]*model.GraphNode, error) {
	var nodes []*model.GraphNode
	if err := c.db.WithContext(ctx).
		Where("project_id = ? AND graph_id = ?", projectID, graphID).
		Order("graph_node_id").
		Find(&nodes).Error; err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}

	return nodes, nil
}

// QueryGraphNodesByStatus query nodes of all graphs in the given status
func (c *metaOpsClient) QueryGraphNodesByStatus(
	ctx context.Context, status graphModel.ExecutionState,
) ([]*model.GraphNode, error) {
	var nodes []*model.GraphNode
	if err := c.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Find(&nodes).Error; err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}

	return nodes, nil
}

// QueryPlanNodesByStatus implements GraphClient.QueryPlanNodesByStatus
func (c *metaOpsClient) QueryPlanNodesByStatus(
	ctx context.Context, status graphModel.ExecutionState,
) ([]*model.GraphNode, error) {
	var nodes []*model.GraphNode
	if err := c.db.WithContext(ctx).
		Model(&model.GraphNode{}).
		Joins("JOIN graphs ON graphs.project_id = graph_nodes.project_id AND " +
			"graphs.graph_id = graph_nodes.graph_id AND graphs.run_epoch = graph_nodes.run_epoch").
		Where("graph_nodes.status = ? AND graph_nodes.run_epoch > 0", string(status)).
		Find(&nodes).Error; err != nil {
		return nil, errors.ErrMetaOpFail.Wrap(err)
	}

	return nodes, nil
}

func wrapQueryError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errors.ErrMetaEntryNotFound.Wrap(err)
	}
	return errors.ErrMetaOpFail.Wrap(err)
}

// Result defines a query result interface
type Result interface {
	RowsAffected() int64
}

type ormResult struct {
	rowsAffected int64
}

// RowsAffected return the affected rows of an execution
func (r ormResult) RowsAffected() int64 {
	return r.rowsAffected
}
