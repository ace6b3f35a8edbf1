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

package util

import (
	"context"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/pingcap/log"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/logutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http/httpproxy"
)

const (
	// HTTP is the http scheme.
	HTTP = "http"
	// HTTPS is the https scheme.
	HTTPS = "https"
)

// InitCmd initializes the logger and returns the root context of the command
// with its cancel function.
func InitCmd(cmd *cobra.Command, logCfg *logutil.Config) (context.Context, context.CancelFunc) {
	err := logutil.InitLogger(logCfg)
	if err != nil {
		cmd.Printf("init logger error %v\n", errors.ErrorStack(err))
		os.Exit(1)
	}
	log.Info("init log", zap.String("file", logCfg.File), zap.String("level", logCfg.Level))

	return context.WithCancel(context.Background())
}

// InitSignalHandling cancels the command context on the first signal. A
// second signal exits the process without waiting for shutdown.
func InitSignalHandling(cancel context.CancelFunc) {
	// systemd and k8s send signals twice. The first is for graceful shutdown,
	// and the second is for force shutdown.
	signalChanLen := 2
	sc := make(chan os.Signal, signalChanLen)
	signal.Notify(sc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		sig := <-sc
		log.Info("got signal, prepare to shutdown", zap.Stringer("signal", sig))
		cancel()
		sig = <-sc
		log.Warn("got signal, force shutdown", zap.Stringer("signal", sig))
		os.Exit(1)
	}()
}

// LogHTTPProxies logs HTTP proxy relative environment variables.
func LogHTTPProxies() {
	fields := findProxyFields()
	if len(fields) > 0 {
		log.Info("using proxy config", fields...)
	}
}

func findProxyFields() []zap.Field {
	proxyCfg := httpproxy.FromEnvironment()
	fields := make([]zap.Field, 0, 3)
	if proxyCfg.HTTPProxy != "" {
		fields = append(fields, zap.String("http_proxy", proxyCfg.HTTPProxy))
	}
	if proxyCfg.HTTPSProxy != "" {
		fields = append(fields, zap.String("https_proxy", proxyCfg.HTTPSProxy))
	}
	if proxyCfg.NoProxy != "" {
		fields = append(fields, zap.String("no_proxy", proxyCfg.NoProxy))
	}
	return fields
}

// VerifyKusciaEndpoint verifies whether the kuscia endpoint is a valid http
// or https URL. The certificate is required when using https.
func VerifyKusciaEndpoint(endpoint string, useTLS bool) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.WrapError(errors.ErrConfigInvalid, err, "parse kuscia endpoint")
	}
	if (u.Scheme != HTTP && u.Scheme != HTTPS) || u.Host == "" {
		return errors.ErrConfigInvalid.GenWithStackByArgs(
			"kuscia endpoint should be a valid http or https URL")
	}

	if useTLS {
		if u.Scheme == HTTP {
			return errors.ErrConfigInvalid.GenWithStackByArgs("kuscia endpoint scheme should be https")
		}
	} else if u.Scheme == HTTPS {
		return errors.ErrConfigInvalid.GenWithStackByArgs(
			"kuscia endpoint scheme is https, please provide certificate")
	}
	return nil
}
