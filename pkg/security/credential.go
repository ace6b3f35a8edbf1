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

package security

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/secretflow/padflow/pkg/errors"
)

// Credential holds necessary path parameter to build a tls.Config
type Credential struct {
	CAPath   string `toml:"ca-path" json:"ca-path"`
	CertPath string `toml:"cert-path" json:"cert-path"`
	KeyPath  string `toml:"key-path" json:"key-path"`
}

// IsTLSEnabled checks whether TLS is enabled or not.
func (s *Credential) IsTLSEnabled() bool {
	return len(s.CAPath) != 0
}

// IsEmpty checks whether Credential is empty or not.
func (s *Credential) IsEmpty() bool {
	return len(s.CAPath) == 0 && len(s.CertPath) == 0 && len(s.KeyPath) == 0
}

// ToTLSConfig generates tls's config from *Credential. It returns nil when no
// CA is configured. The client certificate is optional and only loaded when
// both cert and key paths are set.
func (s *Credential) ToTLSConfig() (*tls.Config, error) {
	if !s.IsTLSEnabled() {
		return nil, nil
	}

	ca, err := os.ReadFile(s.CAPath)
	if err != nil {
		return nil, errors.WrapError(errors.ErrToTLSConfigFailed, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(ca) {
		return nil, errors.ErrToTLSConfigFailed.GenWithStack("failed to append ca certs")
	}

	tlsCfg := &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
	if len(s.CertPath) != 0 && len(s.KeyPath) != 0 {
		cert, err := tls.LoadX509KeyPair(s.CertPath, s.KeyPath)
		if err != nil {
			return nil, errors.WrapError(errors.ErrToTLSConfigFailed, err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}
