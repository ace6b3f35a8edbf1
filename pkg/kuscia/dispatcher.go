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
	"fmt"

	"github.com/google/uuid"
	"github.com/pingcap/log"
	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/errors"
	"go.uber.org/zap"
)

// JobHandle identifies one submission of a graph node.
type JobHandle string

// JobDispatcher runs a single graph node on the execution backend.
type JobDispatcher interface {
	// Submit starts the component of graphNodeID and returns the job handle.
	Submit(ctx context.Context, graphNodeID string, componentDef []byte) (JobHandle, error)
	// QueryStatus returns the execution state of the job.
	QueryStatus(ctx context.Context, handle JobHandle) (graphModel.ExecutionState, error)
	// Cancel asks the backend to stop the job. The returned bool reports
	// whether the backend acknowledged the request.
	Cancel(ctx context.Context, handle JobHandle) (bool, error)
	// QueryOutput returns the data the job produced.
	QueryOutput(ctx context.Context, handle JobHandle) ([]DistData, error)
	// QueryLogs returns the log lines of the job.
	QueryLogs(ctx context.Context, handle JobHandle) ([]string, error)
}

var _ JobDispatcher = (*Client)(nil)

const jobIDPrefix = "padflow-"

// job phases of the execution backend
const (
	phasePending   = "Pending"
	phaseRunning   = "Running"
	phaseSucceeded = "Succeeded"
	phaseFailed    = "Failed"
	phaseCancelled = "Cancelled"
	phaseStopped   = "Stopped"
)

// PhaseToState maps a job phase to the execution state of its graph node.
// Unrecognized phases are treated as pending.
func PhaseToState(phase string) graphModel.ExecutionState {
	switch phase {
	case phaseRunning:
		return graphModel.StateRunning
	case phaseSucceeded:
		return graphModel.StateSucceeded
	case phaseFailed:
		return graphModel.StateFailed
	case phaseCancelled, phaseStopped:
		return graphModel.StateStopped
	case phasePending, "":
		return graphModel.StatePending
	default:
		log.Warn("unknown job phase", zap.String("phase", phase))
		return graphModel.StatePending
	}
}

// Submit implements JobDispatcher.Submit.
func (c *Client) Submit(ctx context.Context, graphNodeID string, componentDef []byte) (JobHandle, error) {
	jobID := jobIDPrefix + uuid.New().String()
	req := &createJobRequest{
		JobID:          jobID,
		MaxParallelism: 1,
		Tasks: []jobTask{{
			TaskID:          graphNodeID,
			Alias:           graphNodeID,
			TaskInputConfig: string(componentDef),
		}},
	}
	var resp envelope[jobIDRequest]
	if err := c.post(ctx, pathCreateJob, req, &resp); err != nil {
		return "", err
	}
	if !resp.Status.IsOK() {
		return "", errors.ErrDispatcherFailed.GenWithStackByArgs(
			fmt.Sprintf("create job for %s, code: %d, message: %s",
				graphNodeID, resp.Status.Code, resp.Status.Message))
	}
	log.Info("job submitted", zap.String("graph-node", graphNodeID), zap.String("job", jobID))
	return JobHandle(jobID), nil
}

// QueryStatus implements JobDispatcher.QueryStatus.
func (c *Client) QueryStatus(ctx context.Context, handle JobHandle) (graphModel.ExecutionState, error) {
	var resp envelope[queryJobData]
	if err := c.post(ctx, pathQueryJob, &jobIDRequest{JobID: string(handle)}, &resp); err != nil {
		return "", err
	}
	if !resp.Status.IsOK() {
		return "", errors.ErrDispatcherFailed.GenWithStackByArgs(
			fmt.Sprintf("query job %s, code: %d, message: %s",
				handle, resp.Status.Code, resp.Status.Message))
	}
	if resp.Data == nil {
		return graphModel.StatePending, nil
	}
	return PhaseToState(resp.Data.Status.State), nil
}

// Cancel implements JobDispatcher.Cancel.
func (c *Client) Cancel(ctx context.Context, handle JobHandle) (bool, error) {
	var resp envelope[jobIDRequest]
	if err := c.post(ctx, pathStopJob, &jobIDRequest{JobID: string(handle)}, &resp); err != nil {
		return false, err
	}
	if !resp.Status.IsOK() {
		log.Info("stop job not acknowledged", zap.String("job", string(handle)),
			zap.Int32("code", resp.Status.Code), zap.String("message", resp.Status.Message))
		return false, nil
	}
	return true, nil
}

// QueryOutput implements JobDispatcher.QueryOutput.
func (c *Client) QueryOutput(ctx context.Context, handle JobHandle) ([]DistData, error) {
	var resp envelope[jobOutputData]
	if err := c.post(ctx, pathQueryOutput, &jobIDRequest{JobID: string(handle)}, &resp); err != nil {
		return nil, err
	}
	if !resp.Status.IsOK() {
		return nil, errors.ErrDispatcherFailed.GenWithStackByArgs(
			fmt.Sprintf("query output of job %s, code: %d, message: %s",
				handle, resp.Status.Code, resp.Status.Message))
	}
	if resp.Data == nil {
		return nil, nil
	}
	return resp.Data.Outputs, nil
}

// QueryLogs implements JobDispatcher.QueryLogs.
func (c *Client) QueryLogs(ctx context.Context, handle JobHandle) ([]string, error) {
	var resp envelope[jobLogData]
	if err := c.post(ctx, pathQueryLogs, &jobIDRequest{JobID: string(handle)}, &resp); err != nil {
		return nil, err
	}
	if !resp.Status.IsOK() {
		return nil, errors.ErrDispatcherFailed.GenWithStackByArgs(
			fmt.Sprintf("query logs of job %s, code: %d, message: %s",
				handle, resp.Status.Code, resp.Status.Message))
	}
	if resp.Data == nil {
		return nil, nil
	}
	return resp.Data.Logs, nil
}
