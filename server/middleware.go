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
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/log"
	"github.com/secretflow/padflow/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var httpStatusByCode = buildStatusTable(map[int][]*errors.Error{
	http.StatusBadRequest: {
		errors.ErrInvalidArgument, errors.ErrNodeNotReady, errors.ErrCannotDeleteDefaultRoute,
		errors.ErrUnknownNodeReference, errors.ErrDuplicateEdge, errors.ErrGraphHasCycle,
		errors.ErrMetaParamsInvalid,
	},
	http.StatusNotFound: {
		errors.ErrNodeNotFound, errors.ErrRouteNotFound, errors.ErrGraphNotFound,
		errors.ErrGraphNodeNotFound, errors.ErrMetaEntryNotFound,
	},
	http.StatusConflict: {
		errors.ErrGraphExecutionInProgress, errors.ErrRouteAlreadyExists, errors.ErrNodeAlreadyExists,
		errors.ErrMetaEntryAlreadyExists,
	},
	http.StatusBadGateway: {
		errors.ErrRemoteRouteCreateFailed, errors.ErrRemoteRouteDeleteFailed, errors.ErrDispatcherFailed,
	},
	http.StatusServiceUnavailable: {
		errors.ErrRemoteUnavailable, errors.ErrServerNotReady,
	},
})

func buildStatusTable(classes map[int][]*errors.Error) map[errors.RFCErrorCode]int {
	table := make(map[errors.RFCErrorCode]int)
	for status, errs := range classes {
		for _, e := range errs {
			table[e.RFCCode()] = status
		}
	}
	return table
}

// httpStatusOf returns the http status of err by its RFC code.
func httpStatusOf(err error) int {
	if code, ok := errors.RFCCode(err); ok {
		if status, ok := httpStatusByCode[code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// LogMiddleware logs the api requests
func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		log.Info("padflow open api request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// ErrorHandleMiddleware puts the error into response
func ErrorHandleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		// handlers return right after recording an error, so there is at most
		// one error in c.Errors
		lastError := c.Errors.Last()
		if lastError == nil {
			return
		}
		status := httpStatusOf(lastError.Err)
		c.JSON(status, newErrorResponse(status, lastError.Err))
		c.Abort()
	}
}

// CheckServerReadyMiddleware rejects requests until the server is serving.
func CheckServerReadyMiddleware(ready *atomic.Bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready.Load() {
			c.Next()
			return
		}
		err := errors.ErrServerNotReady.GenWithStackByArgs()
		c.JSON(http.StatusServiceUnavailable, newErrorResponse(http.StatusServiceUnavailable, err))
		c.Abort()
	}
}
