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

package orm

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/VividCortex/mysqlerr"
	"github.com/glebarez/sqlite"
	gsql "github.com/go-sql-driver/mysql"
	"github.com/pingcap/log"
	"github.com/secretflow/padflow/pkg/config"
	"github.com/secretflow/padflow/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewGormDB news a gorm.DB over an opened sql.DB of the given store type.
// Statements slower than slowThreshold are logged as warnings.
func NewGormDB(sqlDB *sql.DB, storeType string, slowThreshold time.Duration) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch storeType {
	case config.StoreTypeMySQL:
		dialector = mysql.New(mysql.Config{
			Conn:                      sqlDB,
			SkipInitializeWithVersion: false,
		})
	case config.StoreTypeSQLite:
		dialector = &sqlite.Dialector{Conn: sqlDB}
	default:
		return nil, errors.ErrMetaStoreUnsupported.GenWithStackByArgs(storeType)
	}

	lg := log.L().With(zap.String("component", "metastore"), zap.String("store-type", storeType))
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 newStoreLogger(lg, slowThreshold),
	})
	if err != nil {
		return nil, errors.ErrMetaNewClientFail.Wrap(err)
	}

	return db, nil
}

// OpenClient opens the metastore described by cfg, creates the tables and
// returns a client. The returned sql.DB is owned by the caller.
func OpenClient(ctx context.Context, cfg *config.MetaStoreConfig) (Client, *sql.DB, error) {
	driverName := "mysql"
	if cfg.StoreType == config.StoreTypeSQLite {
		driverName = sqlite.DriverName
	}
	sqlDB, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, nil, errors.ErrMetaNewClientFail.Wrap(err)
	}
	if cfg.StoreType == config.StoreTypeSQLite {
		// sqlite serializes writers, a single connection avoids lock errors
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	gdb, err := NewGormDB(sqlDB, cfg.StoreType, cfg.SlowThreshold)
	if err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	cli := newClient(gdb)
	if err := cli.Initialize(ctx); err != nil {
		sqlDB.Close()
		return nil, nil, err
	}
	return cli, sqlDB, nil
}

// IsNotFoundError checks whether the error is ErrMetaEntryNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, errors.ErrMetaEntryNotFound)
}

// IsDuplicateEntryError checks whether the error is a unique key violation
// of mysql or sqlite.
func IsDuplicateEntryError(err error) bool {
	if err == nil {
		return false
	}
	if myErr, ok := errors.Cause(err).(*gsql.MySQLError); ok {
		return myErr.Number == mysqlerr.ER_DUP_ENTRY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
