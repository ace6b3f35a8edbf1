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
	"fmt"
	"time"

	"github.com/secretflow/padflow/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// storeLogger forwards gorm logs to zap. Statements are logged at debug
// level, failed ones at error level, and statements slower than
// slowThreshold are repeated as a warning. A missing row is not a failure,
// the client reports it as ErrMetaEntryNotFound.
type storeLogger struct {
	lg            *zap.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

// newStoreLogger returns a gorm logger writing to lg. A zero slowThreshold
// disables slow statement warnings.
func newStoreLogger(lg *zap.Logger, slowThreshold time.Duration) logger.Interface {
	return &storeLogger{lg: lg, level: logger.Info, slowThreshold: slowThreshold}
}

func (l *storeLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *storeLogger) logf(level logger.LogLevel, fn func(string, ...zap.Field), format string, args []interface{}) {
	if l.level >= level {
		fn(fmt.Sprintf(format, args...))
	}
}

func (l *storeLogger) Info(_ context.Context, format string, args ...interface{}) {
	l.logf(logger.Info, l.lg.Info, format, args)
}

func (l *storeLogger) Warn(_ context.Context, format string, args ...interface{}) {
	l.logf(logger.Warn, l.lg.Warn, format, args)
}

func (l *storeLogger) Error(_ context.Context, format string, args ...interface{}) {
	l.logf(logger.Error, l.lg.Error, format, args)
}

func (l *storeLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("affected-rows", rows),
	}
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if failed {
		l.lg.Error("metastore statement failed", fields...)
	} else {
		l.lg.Debug("metastore statement", fields...)
	}
	if l.slowThreshold > 0 && elapsed > l.slowThreshold {
		l.lg.Warn("slow metastore statement", fields...)
	}
}
