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

package node

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pingcap/log"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/kuscia"
	"github.com/secretflow/padflow/pkg/logutil"
	"github.com/secretflow/padflow/pkg/orm"
	"github.com/secretflow/padflow/pkg/orm/model"
	"go.uber.org/zap"
)

// ReadinessChecker decides whether a node can take part in a route.
type ReadinessChecker interface {
	CheckNodeReady(ctx context.Context, nodeID string) (bool, error)
}

// Manager manages the nodes known to this installation.
type Manager interface {
	ReadinessChecker

	GetNode(ctx context.Context, nodeID string) (*model.Node, error)
	ListNodes(ctx context.Context) ([]*model.Node, error)
	CreateNode(ctx context.Context, param *CreateNodeParam) error
	DeleteNode(ctx context.Context, nodeID string) error
}

// CreateNodeParam is the parameter of CreateNode.
type CreateNodeParam struct {
	NodeID     string `json:"nodeId"`
	Name       string `json:"name"`
	NetAddress string `json:"netAddress"`
	Auth       string `json:"auth,omitempty"`
}

// Validate checks the parameter.
func (p *CreateNodeParam) Validate() error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.NodeID, validation.Required),
		validation.Field(&p.NetAddress, validation.Required, validation.By(IsNetAddress)),
	)
	if err != nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs(err.Error())
	}
	return nil
}

// IsNetAddress is a validation rule for host:port strings.
func IsNetAddress(value interface{}) error {
	addr, _ := value.(string)
	if addr == "" {
		return nil
	}
	if _, err := model.SplitNetAddress(addr); err != nil {
		return validation.NewError("validation_is_net_address", "must be in host:port format")
	}
	return nil
}

type managerImpl struct {
	store     orm.NodeClient
	authority kuscia.RemoteDomainAuthority
	logger    *zap.Logger
}

// NewManager creates a node Manager.
func NewManager(store orm.NodeClient, authority kuscia.RemoteDomainAuthority) Manager {
	return &managerImpl{
		store:     store,
		authority: authority,
		logger:    logutil.WithComponent("node-manager"),
	}
}

// GetNode implements Manager.GetNode.
func (m *managerImpl) GetNode(ctx context.Context, nodeID string) (*model.Node, error) {
	return GetNode(ctx, m.store, nodeID)
}

// GetNode loads a node, translating a missing row to ErrNodeNotFound.
func GetNode(ctx context.Context, store orm.NodeClient, nodeID string) (*model.Node, error) {
	node, err := store.GetNodeByID(ctx, nodeID)
	if err != nil {
		if orm.IsNotFoundError(err) {
			return nil, errors.ErrNodeNotFound.GenWithStackByArgs(nodeID)
		}
		return nil, err
	}
	return node, nil
}

// ListNodes implements Manager.ListNodes.
func (m *managerImpl) ListNodes(ctx context.Context) ([]*model.Node, error) {
	return m.store.QueryNodes(ctx)
}

// CreateNode implements Manager.CreateNode.
func (m *managerImpl) CreateNode(ctx context.Context, param *CreateNodeParam) error {
	if param == nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs("empty node param")
	}
	if err := param.Validate(); err != nil {
		return err
	}
	name := param.Name
	if name == "" {
		name = param.NodeID
	}
	err := m.store.CreateNode(ctx, &model.Node{
		NodeID:     param.NodeID,
		Name:       name,
		NetAddress: param.NetAddress,
		Auth:       param.Auth,
	})
	if err != nil {
		if errors.Is(err, errors.ErrMetaEntryAlreadyExists) {
			return errors.ErrNodeAlreadyExists.GenWithStackByArgs(param.NodeID)
		}
		return err
	}
	m.logger.Info("node created",
		zap.String("node", param.NodeID), zap.String("net-address", param.NetAddress))
	return nil
}

// DeleteNode implements Manager.DeleteNode.
func (m *managerImpl) DeleteNode(ctx context.Context, nodeID string) error {
	res, err := m.store.DeleteNode(ctx, nodeID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return errors.ErrNodeNotFound.GenWithStackByArgs(nodeID)
	}
	m.logger.Info("node deleted", zap.String("node", nodeID))
	return nil
}

// CheckNodeReady implements ReadinessChecker.CheckNodeReady. Readiness is
// never stored and always asked from the authority.
func (m *managerImpl) CheckNodeReady(ctx context.Context, nodeID string) (bool, error) {
	ready, err := m.authority.CheckNodeReady(ctx, nodeID)
	if err != nil {
		log.Warn("check node ready failed", zap.String("node", nodeID), logutil.ShortError(err))
		return false, err
	}
	return ready, nil
}
