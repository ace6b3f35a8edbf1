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
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	graphModel "github.com/secretflow/padflow/graph/model"
	"github.com/secretflow/padflow/pkg/clock"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/logutil"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const maxPollBackoffFactor = 10

// Run implements Manager.Run. Graphs are found through their node rows in
// the store, so polling resumes after a restart.
func (m *managerImpl) Run(ctx context.Context) error {
	ticker := m.clock.Ticker(m.pollInterval)
	defer ticker.Stop()

	bo := m.newPollBackoff()
	var resumeAt time.Time
	m.logger.Info("graph status poller started", zap.Duration("interval", m.pollInterval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("graph status poller exited")
			return errors.Trace(ctx.Err())
		case <-ticker.C:
		}

		if m.clock.Now().Before(resumeAt) {
			continue
		}
		if err := m.refreshAll(ctx); err != nil {
			if errors.IsContextCanceledError(err) {
				continue
			}
			wait := bo.NextBackOff()
			resumeAt = m.clock.Now().Add(wait)
			m.logger.Warn("refresh graphs failed, back off",
				zap.Duration("wait", wait), logutil.ShortError(err))
			continue
		}
		bo.Reset()
		resumeAt = time.Time{}
	}
}

func (m *managerImpl) newPollBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.pollInterval
	bo.MaxInterval = m.pollInterval * maxPollBackoffFactor
	bo.MaxElapsedTime = 0
	bo.Clock = m.clock
	bo.Reset()
	return bo
}

// refreshAll refreshes every graph that has running nodes, and every graph
// whose plan has runnable nodes left behind by a failed submission round.
func (m *managerImpl) refreshAll(ctx context.Context) error {
	start := m.clock.Mono()
	defer func() {
		m.metrics.pollDuration.Observe(clock.Since(m.clock, start).Seconds())
	}()

	running, err := m.store.QueryGraphNodesByStatus(ctx, graphModel.StateRunning)
	if err != nil {
		return err
	}
	m.metrics.runningNodes.Set(float64(len(running)))
	pending, err := m.store.QueryPlanNodesByStatus(ctx, graphModel.StatePending)
	if err != nil {
		return err
	}

	keys := make(map[graphKey]struct{})
	for _, n := range running {
		keys[graphKey{projectID: n.ProjectID, graphID: n.GraphID}] = struct{}{}
	}
	checked := make(map[graphKey]struct{})
	for _, n := range pending {
		key := graphKey{projectID: n.ProjectID, graphID: n.GraphID}
		if _, ok := checked[key]; ok {
			continue
		}
		checked[key] = struct{}{}
		if _, ok := keys[key]; ok {
			continue
		}
		sn, err := m.readState(ctx, key)
		if err != nil {
			if errors.Is(err, errors.ErrGraphNotFound) {
				continue
			}
			return err
		}
		if len(sn.runnable()) > 0 {
			keys[key] = struct{}{}
		}
	}
	sorted := make([]graphKey, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	var errs error
	for _, key := range sorted {
		if _, err := m.RefreshGraph(ctx, key.projectID, key.graphID); err != nil {
			if errors.Is(err, errors.ErrGraphNotFound) {
				continue
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
