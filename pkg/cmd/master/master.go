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

package master

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/log"
	"github.com/secretflow/padflow/pkg/cmd/util"
	"github.com/secretflow/padflow/pkg/config"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/version"
	"github.com/secretflow/padflow/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// options defines flags for the `master` command.
type options struct {
	masterConfig         *config.Config
	masterConfigFilePath string
}

// newOptions creates new options for the `master` command.
func newOptions() *options {
	return &options{
		masterConfig: config.GetDefaultConfig(),
	}
}

// addFlags receives a *cobra.Command reference and binds
// flags related to template printing to it.
func (o *options) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.masterConfig.Addr, "addr", o.masterConfig.Addr, "Set the listening address for the open api")
	cmd.Flags().StringVar(&o.masterConfigFilePath, "config", "", "Path of the configuration file")
	cmd.Flags().StringVar(&o.masterConfig.LogConf.File, "log-file", o.masterConfig.LogConf.File, "log file path")
	cmd.Flags().StringVar(&o.masterConfig.LogConf.Level, "log-level", o.masterConfig.LogConf.Level, "log level (etc: debug|info|warn|error)")

	cmd.Flags().StringVar(&o.masterConfig.MetaStore.StoreType, "store-type", o.masterConfig.MetaStore.StoreType, "metastore backend (mysql|sqlite)")
	cmd.Flags().StringVar(&o.masterConfig.MetaStore.DSN, "dsn", o.masterConfig.MetaStore.DSN, "data source name of the metastore")

	cmd.Flags().StringVar(&o.masterConfig.Kuscia.Endpoint, "kuscia-endpoint", o.masterConfig.Kuscia.Endpoint, "kuscia api endpoint, e.g. https://kuscia:8082")
	cmd.Flags().StringVar(&o.masterConfig.Kuscia.Token, "kuscia-token", o.masterConfig.Kuscia.Token, "token sent to the kuscia api")
	cmd.Flags().StringVar(&o.masterConfig.Kuscia.CAPath, "ca", "", "CA certificate path for TLS connection to kuscia")
	cmd.Flags().StringVar(&o.masterConfig.Kuscia.CertPath, "cert", "", "Certificate path for TLS connection to kuscia")
	cmd.Flags().StringVar(&o.masterConfig.Kuscia.KeyPath, "key", "", "Private key path for TLS connection to kuscia")

	cmd.Flags().StringVar(&o.masterConfig.Graph.StatusPollIntervalStr, "status-poll-interval", o.masterConfig.Graph.StatusPollIntervalStr, "interval of polling the status of running graph nodes")
}

// run runs the master cmd.
func (o *options) run(cmd *cobra.Command) error {
	ctx, cancel := util.InitCmd(cmd, &o.masterConfig.LogConf)
	defer cancel()
	util.InitSignalHandling(cancel)

	version.LogVersionInfo("padflow master")
	log.Info("master config", zap.Stringer("config", o.masterConfig))
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	util.LogHTTPProxies()

	srv, err := server.New(ctx, o.masterConfig)
	if err != nil {
		return errors.Annotate(err, "new server")
	}
	defer srv.Close()

	err = srv.Run(ctx)
	if err != nil && !errors.IsContextCanceledError(err) {
		log.Error("run padflow master with error", zap.String("error", errors.ErrorStack(err)))
		return errors.Annotate(err, "run server")
	}
	log.Info("padflow master exits successfully")
	return nil
}

// complete adapts from the command line args and config file to the data required.
func (o *options) complete(cmd *cobra.Command) error {
	cfg := config.GetDefaultConfig()

	if len(o.masterConfigFilePath) > 0 {
		if err := cfg.ConfigFromFile(o.masterConfigFilePath); err != nil {
			return err
		}
		cfg.ConfigFile = o.masterConfigFilePath
	}

	cmd.Flags().Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "addr":
			cfg.Addr = o.masterConfig.Addr
		case "config":
			// do nothing
		case "log-file":
			cfg.LogConf.File = o.masterConfig.LogConf.File
		case "log-level":
			cfg.LogConf.Level = o.masterConfig.LogConf.Level
		case "store-type":
			cfg.MetaStore.StoreType = o.masterConfig.MetaStore.StoreType
		case "dsn":
			cfg.MetaStore.DSN = o.masterConfig.MetaStore.DSN
		case "kuscia-endpoint":
			cfg.Kuscia.Endpoint = o.masterConfig.Kuscia.Endpoint
		case "kuscia-token":
			cfg.Kuscia.Token = o.masterConfig.Kuscia.Token
		case "ca":
			cfg.Kuscia.CAPath = o.masterConfig.Kuscia.CAPath
		case "cert":
			cfg.Kuscia.CertPath = o.masterConfig.Kuscia.CertPath
		case "key":
			cfg.Kuscia.KeyPath = o.masterConfig.Kuscia.KeyPath
		case "status-poll-interval":
			cfg.Graph.StatusPollIntervalStr = o.masterConfig.Graph.StatusPollIntervalStr
		default:
			log.Panic("unknown flag, please report a bug", zap.String("flagName", flag.Name))
		}
	})

	if err := cfg.Adjust(); err != nil {
		return errors.Trace(err)
	}

	o.masterConfig = cfg

	return nil
}

// validate checks the settings the master cannot start without.
func (o *options) validate() error {
	if o.masterConfig.MetaStore.DSN == "" {
		return errors.ErrConfigInvalid.GenWithStackByArgs("metastore dsn is empty")
	}
	cred := o.masterConfig.Kuscia.Credential
	if !cred.IsEmpty() && !cred.IsTLSEnabled() {
		return errors.ErrConfigInvalid.GenWithStackByArgs("ca is required when cert or key is set")
	}
	return util.VerifyKusciaEndpoint(o.masterConfig.Kuscia.Endpoint, cred.IsTLSEnabled())
}

// NewCmdMaster creates the `master` command.
func NewCmdMaster() *cobra.Command {
	o := newOptions()

	command := &cobra.Command{
		Use:   "master",
		Short: "Start a padflow master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.complete(cmd); err != nil {
				return err
			}
			if err := o.validate(); err != nil {
				return err
			}
			err := o.run(cmd)
			cobra.CheckErr(err)
			return nil
		},
	}

	o.addFlags(command)

	return command
}
