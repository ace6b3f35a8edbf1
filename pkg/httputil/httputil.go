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


package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pingcap/errors"
	"github.com/secretflow/padflow/pkg/security"
)

const contentTypeJSON = "application/json"

// StatusError is returned when the peer answers with a non-2xx status.
type StatusError struct {
	Code int
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Body)
}

// JSONClient posts JSON bodies to a fixed endpoint, optionally over TLS.
// Headers set with SetHeader are attached to every request.
type JSONClient struct {
	endpoint string
	header   http.Header
	cli      *http.Client
}

// NewJSONClient creates a client for endpoint. A nil credential or one
// without a CA means plain HTTP. A zero timeout leaves request deadlines to
// the caller's context.
func NewJSONClient(
	endpoint string, credential *security.Credential, timeout time.Duration,
) (*JSONClient, error) {
	transport := http.DefaultTransport
	if credential != nil {
		tlsConf, err := credential.ToTLSConfig()
		if err != nil {
			return nil, err
		}
		if tlsConf != nil {
			tr := http.DefaultTransport.(*http.Transport).Clone()
			tr.TLSClientConfig = tlsConf
			transport = tr
		}
	}
	return &JSONClient{
		endpoint: endpoint,
		header:   http.Header{},
		cli:      &http.Client{Transport: transport, Timeout: timeout},
	}, nil
}

// SetHeader sets a header sent with every request. Not safe to call
// concurrently with Post.
func (c *JSONClient) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// SetTransport replaces the round tripper, e.g. with a recording one.
func (c *JSONClient) SetTransport(rt http.RoundTripper) {
	c.cli.Transport = rt
}

// Endpoint returns the base URL requests are sent to.
func (c *JSONClient) Endpoint() string {
	return c.endpoint
}

// Post marshals req, posts it to endpoint+path and unmarshals the answer
// into resp. resp may be nil when the body is not needed.
func (c *JSONClient) Post(ctx context.Context, path string, req, resp interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return errors.Trace(err)
	}
	content, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	if err := json.Unmarshal(content, resp); err != nil {
		return errors.Annotatef(err, "decode response of %s", path)
	}
	return nil
}

func (c *JSONClient) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	req.Header = c.header.Clone()
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)

	httpResp, err := c.cli.Do(req)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer httpResp.Body.Close()

	content, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if httpResp.StatusCode < http.StatusOK || httpResp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Trace(&StatusError{Code: httpResp.StatusCode, Body: content})
	}
	return content, nil
}
