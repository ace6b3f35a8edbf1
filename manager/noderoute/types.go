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
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/secretflow/padflow/manager/node"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/kuscia"
)

// RouteType tells whether a route is created in one or both directions.
type RouteType string

// RouteType values
const (
	HalfDuplex = RouteType("HalfDuplex")
	FullDuplex = RouteType("FullDuplex")
)

// ParseRouteType parses a route type, an empty string means HalfDuplex.
func ParseRouteType(s string) (RouteType, error) {
	switch RouteType(s) {
	case "", HalfDuplex:
		return HalfDuplex, nil
	case FullDuplex:
		return FullDuplex, nil
	default:
		return "", errors.ErrInvalidArgument.GenWithStackByArgs("unknown route type " + s)
	}
}

// RouteStatus is the provisioning status of a route reported by the
// authority. It is never cached.
type RouteStatus string

// RouteStatus values
const (
	RouteStatusUnknown   = RouteStatus("Unknown")
	RouteStatusPending   = RouteStatus(kuscia.RouteStatusPending)
	RouteStatusSucceeded = RouteStatus(kuscia.RouteStatusSucceeded)
	RouteStatusFailed    = RouteStatus(kuscia.RouteStatusFailed)
)

// ParseRouteStatus maps the authority's status string, anything unrecognized
// is RouteStatusUnknown.
func ParseRouteStatus(s string) RouteStatus {
	switch s {
	case kuscia.RouteStatusPending:
		return RouteStatusPending
	case kuscia.RouteStatusSucceeded:
		return RouteStatusSucceeded
	case kuscia.RouteStatusFailed:
		return RouteStatusFailed
	default:
		return RouteStatusUnknown
	}
}

// CreateNodeRouteParam is the parameter of CreateNodeRoute. Non-empty
// addresses override the nodes' stored addresses for this route only.
type CreateNodeRouteParam struct {
	SrcNodeID     string    `json:"srcNodeId"`
	DstNodeID     string    `json:"dstNodeId"`
	SrcNetAddress string    `json:"srcNetAddress,omitempty"`
	DstNetAddress string    `json:"dstNetAddress,omitempty"`
	RouteType     RouteType `json:"routeType,omitempty"`
}

// Validate checks the parameter and defaults the route type.
func (p *CreateNodeRouteParam) Validate() error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.SrcNodeID, validation.Required),
		validation.Field(&p.DstNodeID, validation.Required,
			validation.NotIn(p.SrcNodeID).Error("must differ from the source node")),
		validation.Field(&p.SrcNetAddress, validation.By(node.IsNetAddress)),
		validation.Field(&p.DstNetAddress, validation.By(node.IsNetAddress)),
		validation.Field(&p.RouteType, validation.In(HalfDuplex, FullDuplex)),
	)
	if err != nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs(err.Error())
	}
	if p.RouteType == "" {
		p.RouteType = HalfDuplex
	}
	return nil
}

// UpdateNodeRouteParam is the parameter of UpdateNodeRoute.
type UpdateNodeRouteParam struct {
	RouteID       int64  `json:"routeId"`
	SrcNetAddress string `json:"srcNetAddress,omitempty"`
	DstNetAddress string `json:"dstNetAddress,omitempty"`
}

// Validate checks the parameter.
func (p *UpdateNodeRouteParam) Validate() error {
	err := validation.ValidateStruct(p,
		validation.Field(&p.RouteID, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.SrcNetAddress, validation.By(node.IsNetAddress)),
		validation.Field(&p.DstNetAddress, validation.By(node.IsNetAddress)),
	)
	if err != nil {
		return errors.ErrInvalidArgument.GenWithStackByArgs(err.Error())
	}
	return nil
}
