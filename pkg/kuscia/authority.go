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

package kuscia

import (
	"context"

	"github.com/pingcap/log"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/logutil"
	"go.uber.org/zap"
)

//go:generate mockgen -destination mock/authority_mock.go -package mock github.com/secretflow/padflow/pkg/kuscia RemoteDomainAuthority,JobDispatcher

// RemoteDomainAuthority is the control plane owning the actual network routes
// between domains.
type RemoteDomainAuthority interface {
	// CreateRoute creates a route. A non-zero status code is returned as a
	// Status, not as an error.
	CreateRoute(ctx context.Context, req *CreateRouteRequest) (*Status, error)
	// QueryRoute queries the route from src to dst.
	QueryRoute(ctx context.Context, src, dst string) (*QueryRouteResponse, error)
	// DeleteRoute deletes the route from src to dst.
	DeleteRoute(ctx context.Context, src, dst string) (*Status, error)
	// CheckNodeReady reports whether some instance of the domain is ready.
	CheckNodeReady(ctx context.Context, nodeID string) (bool, error)
}

var _ RemoteDomainAuthority = (*Client)(nil)

// NewCreateRouteRequest builds a token authenticated route request from src
// to dst. dstHost and dstPort address the destination gateway.
func NewCreateRouteRequest(src, dst, dstHost string, dstPort int) *CreateRouteRequest {
	return &CreateRouteRequest{
		Source:             src,
		Destination:        dst,
		AuthenticationType: AuthenticationToken,
		TokenConfig:        &TokenConfig{TokenGenMethod: TokenGenMethodRSA},
		Endpoint: RouteEndpoint{
			Host: dstHost,
			Ports: []EndpointPort{{
				Name:     EndpointPortName,
				Port:     dstPort,
				Protocol: EndpointProtocol,
				IsTLS:    true,
			}},
		},
	}
}

// CreateRoute implements RemoteDomainAuthority.CreateRoute.
func (c *Client) CreateRoute(ctx context.Context, req *CreateRouteRequest) (*Status, error) {
	var resp envelope[struct{}]
	if err := c.post(ctx, pathCreateRoute, req, &resp); err != nil {
		return nil, err
	}
	log.Debug("create route",
		zap.String("src-node", req.Source), zap.String("dst-node", req.Destination),
		zap.Int32("code", resp.Status.Code), zap.String("message", resp.Status.Message))
	return &resp.Status, nil
}

// QueryRoute implements RemoteDomainAuthority.QueryRoute.
func (c *Client) QueryRoute(ctx context.Context, src, dst string) (*QueryRouteResponse, error) {
	var resp QueryRouteResponse
	if err := c.post(ctx, pathQueryRoute, &routeKey{Source: src, Destination: dst}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteRoute implements RemoteDomainAuthority.DeleteRoute.
func (c *Client) DeleteRoute(ctx context.Context, src, dst string) (*Status, error) {
	var resp envelope[struct{}]
	if err := c.post(ctx, pathDeleteRoute, &routeKey{Source: src, Destination: dst}, &resp); err != nil {
		return nil, err
	}
	log.Debug("delete route",
		zap.String("src-node", src), zap.String("dst-node", dst),
		zap.Int32("code", resp.Status.Code), zap.String("message", resp.Status.Message))
	return &resp.Status, nil
}

// CheckNodeReady implements RemoteDomainAuthority.CheckNodeReady.
func (c *Client) CheckNodeReady(ctx context.Context, nodeID string) (bool, error) {
	var resp envelope[domainQueryData]
	if err := c.post(ctx, pathQueryDomain, &domainQueryRequest{DomainID: nodeID}, &resp); err != nil {
		return false, err
	}
	if !resp.Status.IsOK() {
		log.Info("query domain failed", zap.String("node", nodeID),
			zap.Int32("code", resp.Status.Code), zap.String("message", resp.Status.Message))
		return false, nil
	}
	if resp.Data == nil {
		return false, nil
	}
	for _, st := range resp.Data.NodeStatuses {
		if st.Status == NodeStatusReady {
			return true, nil
		}
	}
	return false, nil
}

// IsRemoteUnavailable returns whether err means the authority could not be
// reached or did not answer in time.
func IsRemoteUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errors.ErrRemoteUnavailable) {
		return true
	}
	if errors.IsContextCanceledError(err) {
		log.Warn("remote call canceled", logutil.ShortError(err))
		return true
	}
	return false
}
