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
	"strings"
	"time"

	"github.com/secretflow/padflow/pkg/config"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/httputil"
)

// api paths
const (
	pathCreateRoute = "/api/v1/route/create"
	pathQueryRoute  = "/api/v1/route/query"
	pathDeleteRoute = "/api/v1/route/delete"
	pathQueryDomain = "/api/v1/domain/query"
	pathCreateJob   = "/api/v1/job/create"
	pathQueryJob    = "/api/v1/job/query"
	pathStopJob     = "/api/v1/job/stop"
	pathQueryOutput = "/api/v1/job/output/query"
	pathQueryLogs   = "/api/v1/job/log/query"

	tokenHeader = "Token"
)

// Client is a json-over-http client of the kuscia api. It implements both
// RemoteDomainAuthority and JobDispatcher.
type Client struct {
	cli        *httputil.JSONClient
	rpcTimeout time.Duration
}

// NewClient creates a kuscia client from config.
func NewClient(cfg *config.KusciaConfig) (*Client, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, errors.ErrConfigInvalid.GenWithStackByArgs("kuscia.endpoint is empty")
	}
	cred := cfg.Credential
	cli, err := httputil.NewJSONClient(strings.TrimSuffix(cfg.Endpoint, "/"), &cred, 0)
	if err != nil {
		return nil, err
	}
	if cfg.Token != "" {
		cli.SetHeader(tokenHeader, cfg.Token)
	}
	return &Client{cli: cli, rpcTimeout: cfg.RPCTimeout}, nil
}

// post sends req to path and decodes the response envelope into resp. Any
// failure to get a decodable answer, including deadlines, is reported as
// ErrRemoteUnavailable.
func (c *Client) post(ctx context.Context, path string, req interface{}, resp interface{}) error {
	if c.rpcTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.rpcTimeout)
		defer cancel()
	}
	if err := c.cli.Post(ctx, path, req, resp); err != nil {
		return errors.WrapError(errors.ErrRemoteUnavailable, err)
	}
	return nil
}
