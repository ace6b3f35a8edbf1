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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/secretflow/padflow/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestConfigFromString(t *testing.T) {
	t.Parallel()

	data := `
addr = "127.0.0.1:9090"
default-route-ids = [1, 2, 3]

[log]
level = "debug"

[metastore]
store-type = "sqlite"
dsn = "file:padflow?mode=memory"

[kuscia]
endpoint = "https://kuscia:8082"
token = "abc"
ca-path = "/etc/kuscia/ca.crt"
rpc-timeout = "2s"

[graph]
status-poll-interval = "500ms"
`
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.configFromString(data))
	require.NoError(t, cfg.Adjust())

	require.Equal(t, "127.0.0.1:9090", cfg.Addr)
	require.Equal(t, []int64{1, 2, 3}, cfg.DefaultRouteIDs)
	require.Equal(t, "debug", cfg.LogConf.Level)
	require.Equal(t, StoreTypeSQLite, cfg.MetaStore.StoreType)
	require.Equal(t, time.Second, cfg.MetaStore.SlowThreshold)
	require.Equal(t, "https://kuscia:8082", cfg.Kuscia.Endpoint)
	require.Equal(t, "/etc/kuscia/ca.crt", cfg.Kuscia.CAPath)
	require.Equal(t, 2*time.Second, cfg.Kuscia.RPCTimeout)
	require.Equal(t, 500*time.Millisecond, cfg.Graph.StatusPollInterval)

	// secrets are never rendered
	require.NotContains(t, cfg.String(), "abc")
	require.NotContains(t, cfg.String(), "mode=memory")
}

func TestConfigUnknownItem(t *testing.T) {
	t.Parallel()

	cfg := GetDefaultConfig()
	err := cfg.configFromString(`
[kuscia]
endpoint = "https://kuscia:8082"
unknown-key = 1
`)
	require.True(t, errors.Is(err, errors.ErrConfigUnknownItem))
	require.Regexp(t, "kuscia.unknown-key", err)
}

func TestConfigFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "padflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`addr = "0.0.0.0:1234"`), 0o600))
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.ConfigFromFile(path))
	require.Equal(t, "0.0.0.0:1234", cfg.Addr)

	err := cfg.ConfigFromFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.True(t, errors.Is(err, errors.ErrConfigDecode))
}

func TestAdjust(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	require.NoError(t, cfg.Adjust())
	require.Equal(t, defaultAddr, cfg.Addr)
	require.Equal(t, StoreTypeMySQL, cfg.MetaStore.StoreType)
	require.Equal(t, DefaultRouteIDs, cfg.DefaultRouteIDs)
	require.Equal(t, 3*time.Second, cfg.Graph.StatusPollInterval)

	cfg = GetDefaultConfig()
	cfg.MetaStore.StoreType = "etcd"
	require.True(t, errors.Is(cfg.Adjust(), errors.ErrMetaStoreUnsupported))

	cfg = GetDefaultConfig()
	cfg.Kuscia.RPCTimeoutStr = "soon"
	require.True(t, errors.Is(cfg.Adjust(), errors.ErrConfigInvalid))

	cfg = GetDefaultConfig()
	cfg.Graph.StatusPollIntervalStr = "0s"
	require.True(t, errors.Is(cfg.Adjust(), errors.ErrConfigInvalid))
}
