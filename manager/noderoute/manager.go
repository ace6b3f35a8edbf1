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

package noderoute

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pingcap/failpoint"
	"github.com/secretflow/padflow/manager/node"
	"github.com/secretflow/padflow/pkg/config"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/kuscia"
	"github.com/secretflow/padflow/pkg/logutil"
	"github.com/secretflow/padflow/pkg/orm"
	"github.com/secretflow/padflow/pkg/orm/model"
	"github.com/secretflow/padflow/pkg/promutil"
	"go.uber.org/zap"
)

// Manager keeps the local route store and the remote authority in agreement
// on the routes between nodes.
type Manager interface {
	// CreateNodeRoute asserts the route remotely and upserts it locally. With
	// checkExisting an existing local route is an error.
	CreateNodeRoute(ctx context.Context, param *CreateNodeRouteParam, checkExisting bool) (int64, error)
	DeleteNodeRoute(ctx context.Context, srcNodeID, dstNodeID string) error
	DeleteNodeRouteByID(ctx context.Context, routeID int64) error
	// UpdateNodeRoute recreates the route as half duplex with new addresses.
	UpdateNodeRoute(ctx context.Context, param *UpdateNodeRouteParam) error
	GetNodeRoute(ctx context.Context, routeID int64) (*model.NodeRoute, error)
	ListNodeRoutesBySrc(ctx context.Context, srcNodeID string) ([]*model.NodeRoute, error)

	// The following read through to the authority.
	GetRouteStatus(ctx context.Context, srcNodeID, dstNodeID string) (RouteStatus, error)
	CheckNodeRouteReady(ctx context.Context, srcNodeID, dstNodeID string) (bool, error)
	CheckNodeRouteExists(ctx context.Context, srcNodeID, dstNodeID string) (bool, error)
}

// operation labels
const (
	opCreate = "create"
	opDelete = "delete"
	opUpdate = "update"
	opQuery  = "query"
)

type managerImpl struct {
	store     orm.Client
	authority kuscia.RemoteDomainAuthority
	readiness node.ReadinessChecker

	defaultRouteIDs map[int64]struct{}
	metrics         *metrics
	logger          *zap.Logger
}

// Option configures the Manager.
type Option func(*managerImpl)

// WithDefaultRouteIDs overrides the reserved route ids.
func WithDefaultRouteIDs(ids []int64) Option {
	return func(m *managerImpl) {
		m.defaultRouteIDs = make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			m.defaultRouteIDs[id] = struct{}{}
		}
	}
}

// WithLogger sets the logger of the manager.
func WithLogger(lg *zap.Logger) Option {
	return func(m *managerImpl) {
		m.logger = lg
	}
}

// WithMetricFactory registers the metrics with factory.
func WithMetricFactory(factory promutil.Factory) Option {
	return func(m *managerImpl) {
		m.metrics = newMetrics(factory)
	}
}

// NewManager creates a route Manager.
func NewManager(
	store orm.Client,
	authority kuscia.RemoteDomainAuthority,
	readiness node.ReadinessChecker,
	opts ...Option,
) Manager {
	m := &managerImpl{
		store:     store,
		authority: authority,
		readiness: readiness,
		logger:    logutil.WithComponent("noderoute-manager"),
	}
	WithDefaultRouteIDs(config.DefaultRouteIDs)(m)
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = newMetrics(promutil.NewFactory(promutil.NewOnlyRegistry()))
	}
	return m
}

// CreateNodeRoute implements Manager.CreateNodeRoute.
func (m *managerImpl) CreateNodeRoute(
	ctx context.Context, param *CreateNodeRouteParam, checkExisting bool,
) (routeID int64, err error) {
	defer func() { m.metrics.observeOperation(opCreate, err) }()

	if param == nil {
		return 0, errors.ErrInvalidArgument.GenWithStackByArgs("empty node route param")
	}
	if err := param.Validate(); err != nil {
		return 0, err
	}

	// Remote calls made inside are not rolled back with the transaction.
	err = m.store.Transaction(ctx, func(tx orm.Client) error {
		src, dst, err := m.loadReadyNodes(ctx, tx, param.SrcNodeID, param.DstNodeID)
		if err != nil {
			return err
		}
		if param.SrcNetAddress != "" {
			src.NetAddress = param.SrcNetAddress
		}
		if param.DstNetAddress != "" {
			dst.NetAddress = param.DstNetAddress
		}
		routeID, err = m.createRoute(ctx, tx, src, dst, param.RouteType, checkExisting)
		return err
	})
	if err != nil {
		m.logger.Warn("create node route failed",
			zap.String("src-node", param.SrcNodeID), zap.String("dst-node", param.DstNodeID),
			zap.String("route-type", string(param.RouteType)), logutil.ShortError(err))
		return 0, err
	}
	m.logger.Info("node route created",
		zap.String("src-node", param.SrcNodeID), zap.String("dst-node", param.DstNodeID),
		zap.String("route-type", string(param.RouteType)), zap.Int64("route-id", routeID))
	return routeID, nil
}

func (m *managerImpl) loadReadyNodes(
	ctx context.Context, tx orm.NodeClient, srcNodeID, dstNodeID string,
) (*model.Node, *model.Node, error) {
	src, err := node.GetNode(ctx, tx, srcNodeID)
	if err != nil {
		return nil, nil, err
	}
	dst, err := node.GetNode(ctx, tx, dstNodeID)
	if err != nil {
		return nil, nil, err
	}
	for _, id := range []string{srcNodeID, dstNodeID} {
		ready, err := m.readiness.CheckNodeReady(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if !ready {
			return nil, nil, errors.ErrNodeNotReady.GenWithStackByArgs(id)
		}
	}
	return src, dst, nil
}

// createRoute creates the route from src to dst. A full duplex route first
// creates the reverse route unless it already exists locally.
func (m *managerImpl) createRoute(
	ctx context.Context, tx orm.Client,
	src, dst *model.Node, routeType RouteType, checkExisting bool,
) (int64, error) {
	if checkExisting {
		exists, err := routeExistsLocally(ctx, tx, src.NodeID, dst.NodeID)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, errors.ErrRouteAlreadyExists.GenWithStackByArgs(src.NodeID, dst.NodeID)
		}
	}

	switch routeType {
	case FullDuplex:
		exists, err := routeExistsLocally(ctx, tx, dst.NodeID, src.NodeID)
		if err != nil {
			return 0, err
		}
		if !exists {
			if _, err := m.createRoute(ctx, tx, dst, src, HalfDuplex, false); err != nil {
				return 0, err
			}
		}
	case HalfDuplex:
	default:
		return 0, errors.ErrInvalidArgument.GenWithStackByArgs("unknown route type " + string(routeType))
	}

	if err := m.assertRemoteRoute(ctx, src, dst); err != nil {
		return 0, err
	}

	failpoint.Inject("createRouteBeforeUpsert", func() {
		failpoint.Return(int64(0), errors.ErrUnknown.GenWithStackByArgs())
	})

	return tx.UpsertNodeRoute(ctx, &model.NodeRoute{
		SrcNodeID:     src.NodeID,
		DstNodeID:     dst.NodeID,
		SrcNetAddress: src.NetAddress,
		DstNetAddress: dst.NetAddress,
	})
}

func routeExistsLocally(ctx context.Context, store orm.NodeRouteClient, srcNodeID, dstNodeID string) (bool, error) {
	_, err := store.GetNodeRouteBySrcDst(ctx, srcNodeID, dstNodeID)
	if err == nil {
		return true, nil
	}
	if orm.IsNotFoundError(err) {
		return false, nil
	}
	return false, err
}

// assertRemoteRoute (re)creates the physical route. A route the authority
// still keeps is deleted first so the new endpoint takes effect.
func (m *managerImpl) assertRemoteRoute(ctx context.Context, src, dst *model.Node) error {
	endpoint, err := model.SplitNetAddress(dst.NetAddress)
	if err != nil {
		return err
	}

	code, err := m.queryRemoteRoute(ctx, src.NodeID, dst.NodeID)
	if err != nil {
		return err
	}
	if routeExists(code) {
		fields := []zap.Field{
			zap.String("src-node", src.NodeID), zap.String("dst-node", dst.NodeID), zap.Int32("code", code),
		}
		if code == kuscia.CodeOK {
			// the authority still serves the route, traffic drops until it is created again
			m.logger.Warn("tear down live remote route before creating", fields...)
		} else {
			m.logger.Info("delete stale remote route before creating", fields...)
		}
		if err := m.deleteRemoteRoute(ctx, src.NodeID, dst.NodeID); err != nil {
			return err
		}
	}

	start := time.Now()
	status, err := m.authority.CreateRoute(ctx,
		kuscia.NewCreateRouteRequest(src.NodeID, dst.NodeID, endpoint.Host, endpoint.Port))
	m.metrics.observeRemote(opCreate, start)
	if err != nil {
		return err
	}
	if !status.IsOK() {
		return errors.ErrRemoteRouteCreateFailed.GenWithStackByArgs(
			src.NodeID, dst.NodeID, status.Code, status.Message)
	}
	return nil
}

// queryRemoteRoute returns the status code the authority answers for the
// route query.
func (m *managerImpl) queryRemoteRoute(ctx context.Context, srcNodeID, dstNodeID string) (int32, error) {
	start := time.Now()
	resp, err := m.authority.QueryRoute(ctx, srcNodeID, dstNodeID)
	m.metrics.observeRemote(opQuery, start)
	if err != nil {
		return 0, err
	}
	return resp.Status.Code, nil
}

func routeExists(code int32) bool {
	return code == kuscia.CodeOK || code == kuscia.CodeRouteExists
}

// deleteRemoteRoute deletes the physical route, a route already absent is
// not an error.
func (m *managerImpl) deleteRemoteRoute(ctx context.Context, srcNodeID, dstNodeID string) error {
	start := time.Now()
	status, err := m.authority.DeleteRoute(ctx, srcNodeID, dstNodeID)
	m.metrics.observeRemote(opDelete, start)
	if err != nil {
		return err
	}
	switch status.Code {
	case kuscia.CodeOK:
	case kuscia.CodeRouteNotExist:
		m.logger.Info("remote route already absent",
			zap.String("src-node", srcNodeID), zap.String("dst-node", dstNodeID))
	default:
		return errors.ErrRemoteRouteDeleteFailed.GenWithStackByArgs(
			srcNodeID, dstNodeID, status.Code, status.Message)
	}
	return nil
}

// DeleteNodeRoute implements Manager.DeleteNodeRoute.
func (m *managerImpl) DeleteNodeRoute(ctx context.Context, srcNodeID, dstNodeID string) (err error) {
	defer func() { m.metrics.observeOperation(opDelete, err) }()

	route, err := m.store.GetNodeRouteBySrcDst(ctx, srcNodeID, dstNodeID)
	if err != nil {
		if orm.IsNotFoundError(err) {
			return errors.ErrRouteNotFound.GenWithStackByArgs(fmt.Sprintf("%s -> %s", srcNodeID, dstNodeID))
		}
		return err
	}
	return m.deleteRoute(ctx, route)
}

// DeleteNodeRouteByID implements Manager.DeleteNodeRouteByID.
func (m *managerImpl) DeleteNodeRouteByID(ctx context.Context, routeID int64) (err error) {
	defer func() { m.metrics.observeOperation(opDelete, err) }()

	if m.isDefaultRoute(routeID) {
		return errors.ErrCannotDeleteDefaultRoute.GenWithStackByArgs(routeID)
	}
	route, err := m.getRoute(ctx, routeID)
	if err != nil {
		return err
	}
	return m.deleteRoute(ctx, route)
}

func (m *managerImpl) deleteRoute(ctx context.Context, route *model.NodeRoute) error {
	if m.isDefaultRoute(route.RouteID) {
		return errors.ErrCannotDeleteDefaultRoute.GenWithStackByArgs(route.RouteID)
	}
	if err := m.deleteRemoteRoute(ctx, route.SrcNodeID, route.DstNodeID); err != nil {
		m.logger.Warn("delete remote route failed, keep local route",
			zap.Int64("route-id", route.RouteID), logutil.ShortError(err))
		return err
	}

	failpoint.Inject("deleteRouteBeforeLocalDelete", func() {
		failpoint.Return(errors.ErrUnknown.GenWithStackByArgs())
	})

	res, err := m.store.DeleteNodeRoute(ctx, route.RouteID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.ErrRouteNotFound.GenWithStackByArgs(strconv.FormatInt(route.RouteID, 10))
	}
	m.logger.Info("node route deleted", zap.Int64("route-id", route.RouteID),
		zap.String("src-node", route.SrcNodeID), zap.String("dst-node", route.DstNodeID))
	return nil
}

func (m *managerImpl) isDefaultRoute(routeID int64) bool {
	_, ok := m.defaultRouteIDs[routeID]
	return ok
}

// UpdateNodeRoute implements Manager.UpdateNodeRoute.
func (m *managerImpl) UpdateNodeRoute(ctx context.Context, param *UpdateNodeRouteParam) (err error) {
	defer func() { m.metrics.observeOperation(opUpdate, err) }()

	if param == nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs("empty node route param")
	}
	if err := param.Validate(); err != nil {
		return err
	}
	route, err := m.getRoute(ctx, param.RouteID)
	if err != nil {
		return err
	}
	_, err = m.CreateNodeRoute(ctx, &CreateNodeRouteParam{
		SrcNodeID:     route.SrcNodeID,
		DstNodeID:     route.DstNodeID,
		SrcNetAddress: param.SrcNetAddress,
		DstNetAddress: param.DstNetAddress,
		RouteType:     HalfDuplex,
	}, false)
	return err
}

func (m *managerImpl) getRoute(ctx context.Context, routeID int64) (*model.NodeRoute, error) {
	route, err := m.store.GetNodeRouteByID(ctx, routeID)
	if err != nil {
		if orm.IsNotFoundError(err) {
			return nil, errors.ErrRouteNotFound.GenWithStackByArgs(strconv.FormatInt(routeID, 10))
		}
		return nil, err
	}
	return route, nil
}

// GetNodeRoute implements Manager.GetNodeRoute.
func (m *managerImpl) GetNodeRoute(ctx context.Context, routeID int64) (*model.NodeRoute, error) {
	return m.getRoute(ctx, routeID)
}

// ListNodeRoutesBySrc implements Manager.ListNodeRoutesBySrc.
func (m *managerImpl) ListNodeRoutesBySrc(ctx context.Context, srcNodeID string) ([]*model.NodeRoute, error) {
	return m.store.QueryNodeRoutesBySrc(ctx, srcNodeID)
}

func (m *managerImpl) queryRoute(ctx context.Context, srcNodeID, dstNodeID string) (*kuscia.QueryRouteResponse, error) {
	start := time.Now()
	resp, err := m.authority.QueryRoute(ctx, srcNodeID, dstNodeID)
	m.metrics.observeRemote(opQuery, start)
	return resp, err
}

// GetRouteStatus implements Manager.GetRouteStatus.
func (m *managerImpl) GetRouteStatus(ctx context.Context, srcNodeID, dstNodeID string) (RouteStatus, error) {
	resp, err := m.queryRoute(ctx, srcNodeID, dstNodeID)
	if err != nil {
		return RouteStatusUnknown, err
	}
	if !resp.Status.IsOK() || resp.Data == nil {
		return RouteStatusUnknown, nil
	}
	return ParseRouteStatus(resp.Data.Status.Status), nil
}

// CheckNodeRouteReady implements Manager.CheckNodeRouteReady.
func (m *managerImpl) CheckNodeRouteReady(ctx context.Context, srcNodeID, dstNodeID string) (bool, error) {
	status, err := m.GetRouteStatus(ctx, srcNodeID, dstNodeID)
	if err != nil {
		return false, err
	}
	return status == RouteStatusSucceeded, nil
}

// CheckNodeRouteExists implements Manager.CheckNodeRouteExists.
func (m *managerImpl) CheckNodeRouteExists(ctx context.Context, srcNodeID, dstNodeID string) (bool, error) {
	code, err := m.queryRemoteRoute(ctx, srcNodeID, dstNodeID)
	if err != nil {
		return false, err
	}
	return routeExists(code), nil
}
