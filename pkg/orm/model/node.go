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
	"net"
	"strconv"
	"time"

	"github.com/secretflow/padflow/pkg/errors"
)

// Node is a party known to this installation. Readiness is not stored, it is
// derived from the remote authority on demand.
type Node struct {
	Model
	NodeID     string `json:"nodeId" gorm:"column:node_id;type:varchar(64) not null;uniqueIndex:uidx_node_id"`
	Name       string `json:"name" gorm:"column:name;type:varchar(256) not null"`
	NetAddress string `json:"netAddress" gorm:"column:net_address;type:varchar(256) not null"`
	// Auth is an opaque token or certificate digest of the node.
	Auth string `json:"-" gorm:"column:auth;type:text"`
}

// Endpoint is a network endpoint split from a `host:port` address.
type Endpoint struct {
	Host string
	Port int
}

// SplitNetAddress splits a `host:port` address.
func SplitNetAddress(addr string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return Endpoint{}, errors.ErrInvalidArgument.Wrap(err).GenWithStackByArgs("net address " + addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 || host == "" {
		return Endpoint{}, errors.ErrInvalidArgument.GenWithStackByArgs("net address " + addr)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// NodeRoute is a directed route from SrcNodeID to DstNodeID. A full duplex
// route is stored as two rows. The addresses are copies of the endpoints'
// addresses taken when the route was last asserted.
type NodeRoute struct {
	RouteID       int64     `json:"routeId" gorm:"column:route_id;primaryKey;autoIncrement"`
	SrcNodeID     string    `json:"srcNodeId" gorm:"column:src_node_id;type:varchar(64) not null;uniqueIndex:uidx_src_dst,priority:1"`
	DstNodeID     string    `json:"dstNodeId" gorm:"column:dst_node_id;type:varchar(64) not null;uniqueIndex:uidx_src_dst,priority:2;index:idx_dst"`
	SrcNetAddress string    `json:"srcNetAddress" gorm:"column:src_net_address;type:varchar(256) not null"`
	DstNetAddress string    `json:"dstNetAddress" gorm:"column:dst_net_address;type:varchar(256) not null"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AddressMap returns the columns refreshed when a route is re-asserted.
func (r *NodeRoute) AddressMap() KeyValueMap {
	return KeyValueMap{
		"src_net_address": r.SrcNetAddress,
		"dst_net_address": r.DstNetAddress,
	}
}
