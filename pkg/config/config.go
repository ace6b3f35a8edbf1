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

package config

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/log"
	"github.com/secretflow/padflow/pkg/errors"
	"github.com/secretflow/padflow/pkg/logutil"
	"github.com/secretflow/padflow/pkg/security"
	"go.uber.org/zap"
)

const (
	defaultAddr               = "0.0.0.0:8080"
	defaultRPCTimeout         = "5s"
	defaultStatusPollInterval = "3s"
	defaultSlowThreshold      = "1s"

	// StoreTypeMySQL is the mysql compatible metastore.
	StoreTypeMySQL = "mysql"
	// StoreTypeSQLite is the embedded pure-go sqlite metastore.
	StoreTypeSQLite = "sqlite"
)

// DefaultRouteIDs are the route ids of the default route pair installed with
// the platform.
var DefaultRouteIDs = []int64{1, 2}

// MetaStoreConfig configures the metastore backend.
type MetaStoreConfig struct {
	StoreType string `toml:"store-type" json:"store-type"`
	// DSN is a go-sql-driver/mysql DSN for mysql or a file DSN for sqlite.
	DSN              string        `toml:"dsn" json:"-"`
	SlowThresholdStr string        `toml:"slow-threshold" json:"slow-threshold"`
	SlowThreshold    time.Duration `toml:"-" json:"-"`
}

// KusciaConfig configures the remote domain authority and job dispatcher.
type KusciaConfig struct {
	Endpoint string `toml:"endpoint" json:"endpoint"`
	Token    string `toml:"token" json:"-"`
	security.Credential

	RPCTimeoutStr string        `toml:"rpc-timeout" json:"rpc-timeout"`
	RPCTimeout    time.Duration `toml:"-" json:"-"`
}

// GraphConfig configures graph execution tracking.
type GraphConfig struct {
	StatusPollIntervalStr string        `toml:"status-poll-interval" json:"status-poll-interval"`
	StatusPollInterval    time.Duration `toml:"-" json:"-"`
}

// Config is the configuration for padflow master.
type Config struct {
	LogConf logutil.Config `toml:"log" json:"log"`

	Addr       string `toml:"addr" json:"addr"`
	ConfigFile string `toml:"config-file" json:"config-file"`

	MetaStore *MetaStoreConfig `toml:"metastore" json:"metastore"`
	Kuscia    *KusciaConfig    `toml:"kuscia" json:"kuscia"`
	Graph     *GraphConfig     `toml:"graph" json:"graph"`

	DefaultRouteIDs []int64 `toml:"default-route-ids" json:"default-route-ids"`
}

func (c *Config) String() string {
	cfg, err := json.Marshal(c)
	if err != nil {
		log.L().Error("marshal to json", zap.Reflect("master config", c), logutil.ShortError(err))
	}
	return string(cfg)
}

// Adjust fills defaults and parses duration strings.
func (c *Config) Adjust() (err error) {
	c.LogConf.Adjust()
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if len(c.DefaultRouteIDs) == 0 {
		c.DefaultRouteIDs = append([]int64(nil), DefaultRouteIDs...)
	}

	if c.MetaStore == nil {
		c.MetaStore = &MetaStoreConfig{}
	}
	switch c.MetaStore.StoreType {
	case "":
		c.MetaStore.StoreType = StoreTypeMySQL
	case StoreTypeMySQL, StoreTypeSQLite:
	default:
		return errors.ErrMetaStoreUnsupported.GenWithStackByArgs(c.MetaStore.StoreType)
	}
	if c.MetaStore.SlowThresholdStr == "" {
		c.MetaStore.SlowThresholdStr = defaultSlowThreshold
	}
	c.MetaStore.SlowThreshold, err = parseDuration("metastore.slow-threshold", c.MetaStore.SlowThresholdStr)
	if err != nil {
		return err
	}

	if c.Kuscia == nil {
		c.Kuscia = &KusciaConfig{}
	}
	if c.Kuscia.RPCTimeoutStr == "" {
		c.Kuscia.RPCTimeoutStr = defaultRPCTimeout
	}
	c.Kuscia.RPCTimeout, err = parseDuration("kuscia.rpc-timeout", c.Kuscia.RPCTimeoutStr)
	if err != nil {
		return err
	}

	if c.Graph == nil {
		c.Graph = &GraphConfig{}
	}
	if c.Graph.StatusPollIntervalStr == "" {
		c.Graph.StatusPollIntervalStr = defaultStatusPollInterval
	}
	c.Graph.StatusPollInterval, err = parseDuration("graph.status-poll-interval", c.Graph.StatusPollIntervalStr)
	if err != nil {
		return err
	}
	if c.Graph.StatusPollInterval <= 0 {
		return errors.ErrConfigInvalid.GenWithStackByArgs("graph.status-poll-interval must be positive")
	}
	return nil
}

// ConfigFromFile loads config from file and merges items into Config.
func (c *Config) ConfigFromFile(path string) error {
	metaData, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.WrapError(errors.ErrConfigDecode, err, path)
	}
	return checkUndecodedItems(metaData)
}

func (c *Config) configFromString(data string) error {
	metaData, err := toml.Decode(data, c)
	if err != nil {
		return errors.WrapError(errors.ErrConfigDecode, err, "<string>")
	}
	return checkUndecodedItems(metaData)
}

// GetDefaultConfig returns a default master config
func GetDefaultConfig() *Config {
	return &Config{
		LogConf: logutil.Config{
			Level: "info",
			File:  "",
		},
		Addr: defaultAddr,
		MetaStore: &MetaStoreConfig{
			StoreType:        StoreTypeMySQL,
			SlowThresholdStr: defaultSlowThreshold,
		},
		Kuscia: &KusciaConfig{
			RPCTimeoutStr: defaultRPCTimeout,
		},
		Graph: &GraphConfig{
			StatusPollIntervalStr: defaultStatusPollInterval,
		},
		DefaultRouteIDs: append([]int64(nil), DefaultRouteIDs...),
	}
}

func checkUndecodedItems(metaData toml.MetaData) error {
	undecoded := metaData.Undecoded()
	if len(undecoded) > 0 {
		var undecodedItems []string
		for _, item := range undecoded {
			undecodedItems = append(undecodedItems, item.String())
		}
		return errors.ErrConfigUnknownItem.GenWithStackByArgs(strings.Join(undecodedItems, ","))
	}
	return nil
}

func parseDuration(item, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WrapError(errors.ErrConfigInvalid, err, item)
	}
	return d, nil
}
