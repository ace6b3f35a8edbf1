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

package server

import (
	"context"
	"database/sql"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/secretflow/padflow/graph"
	"github.com/secretflow/padflow/manager/node"
	"github.com/secretflow/padflow/manager/noderoute"
	"github.com/secretflow/padflow/pkg/config"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/kuscia"
	"github.com/secretflow/padflow/pkg/logutil"
	"github.com/secretflow/padflow/pkg/orm"
	"github.com/secretflow/padflow/pkg/promutil"
	"github.com/secretflow/padflow/pkg/version"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	httpConnectionTimeout = 30 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// Server is the padflow master. It serves the OpenAPI and polls the running
// graphs.
type Server struct {
	cfg      *config.Config
	store    orm.Client
	db       *sql.DB
	registry *promutil.Registry

	nodes  node.Manager
	routes noderoute.Manager
	graphs graph.Manager

	ready  atomic.Bool
	logger *zap.Logger
}

// New opens the metastore and the kuscia client described by cfg and creates
// a Server. cfg must be adjusted.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, db, err := orm.OpenClient(ctx, cfg.MetaStore)
	if err != nil {
		return nil, err
	}
	cli, err := kuscia.NewClient(cfg.Kuscia)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s := newServer(cfg, store, cli, cli)
	s.db = db
	return s, nil
}

func newServer(
	cfg *config.Config, store orm.Client,
	authority kuscia.RemoteDomainAuthority, dispatcher kuscia.JobDispatcher,
) *Server {
	registry := promutil.NewRegistry()
	factory := promutil.NewFactory(registry)
	info := version.Current()
	factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "padflow",
		Subsystem: "server",
		Name:      "build_info",
		Help:      "Build information of the running master, always 1.",
	}, []string{"release_version", "semver", "git_hash"}).
		WithLabelValues(info.ReleaseVersion, info.Semver(), info.GitHash).Set(1)
	nodes := node.NewManager(store, authority)
	return &Server{
		cfg:      cfg,
		store:    store,
		registry: registry,
		nodes:    nodes,
		routes: noderoute.NewManager(store, authority, nodes,
			noderoute.WithDefaultRouteIDs(cfg.DefaultRouteIDs),
			noderoute.WithMetricFactory(factory)),
		graphs: graph.NewManager(store, dispatcher,
			graph.WithPollInterval(cfg.Graph.StatusPollInterval),
			graph.WithMetricFactory(factory)),
		logger: logutil.WithComponent("server"),
	}
}

func (s *Server) router() *gin.Engine {
	router := gin.New()
	// add gin.Recovery() to handle unexpected panic
	router.Use(gin.Recovery())
	RegisterOpenAPIRoutes(router, NewOpenAPI(s.nodes, s.routes, s.graphs), &s.ready)
	router.GET("/metrics", gin.WrapH(promutil.HTTPHandlerForMetric(s.registry)))
	return router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	// discard gin log output
	gin.DefaultWriter = io.Discard
	gin.SetMode(gin.ReleaseMode)
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return errors.WrapError(errors.ErrServeHTTP, err, s.cfg.Addr)
	}
	return s.serve(ctx, lis)
}

// serve runs the http server and the graph status poller. It returns nil
// when ctx is canceled.
func (s *Server) serve(ctx context.Context, lis net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.router(),
		ReadTimeout:  httpConnectionTimeout,
		WriteTimeout: httpConnectionTimeout,
	}

	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		return s.graphs.Run(gctx)
	})
	wg.Go(func() error {
		s.logger.Info("http server is running", zap.String("addr", lis.Addr().String()))
		s.ready.Store(true)
		err := httpServer.Serve(lis)
		if err != nil && err != http.ErrServerClosed {
			return errors.WrapError(errors.ErrServeHTTP, err, lis.Addr().String())
		}
		return nil
	})
	wg.Go(func() error {
		<-gctx.Done()
		s.ready.Store(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Trace(httpServer.Shutdown(shutdownCtx))
	})

	err := wg.Wait()
	s.logger.Info("server exited", logutil.ZapErrorFilter(err, context.Canceled))
	if ctx.Err() != nil && errors.IsContextCanceledError(err) {
		return nil
	}
	return err
}

// Close releases the metastore connection opened by New.
func (s *Server) Close() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("close metastore", logutil.ShortError(err))
	}
	s.db = nil
}
