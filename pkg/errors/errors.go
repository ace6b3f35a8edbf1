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

package errors

import (
	"github.com/pingcap/errors"
)

// all padflow errors
var (
	// general errors
	ErrUnknown = errors.Normalize(
		"unknown error",
		errors.RFCCodeText("PADFLOW:ErrUnknown"),
	)
	ErrInvalidArgument = errors.Normalize(
		"invalid argument: %s",
		errors.RFCCodeText("PADFLOW:ErrInvalidArgument"),
	)

	// node related errors
	ErrNodeNotFound = errors.Normalize(
		"node %s not found",
		errors.RFCCodeText("PADFLOW:ErrNodeNotFound"),
	)
	ErrNodeNotReady = errors.Normalize(
		"node %s is not ready",
		errors.RFCCodeText("PADFLOW:ErrNodeNotReady"),
	)
	ErrNodeAlreadyExists = errors.Normalize(
		"node %s already exists",
		errors.RFCCodeText("PADFLOW:ErrNodeAlreadyExists"),
	)

	// node route related errors
	ErrRouteAlreadyExists = errors.Normalize(
		"node route from %s to %s already exists",
		errors.RFCCodeText("PADFLOW:ErrRouteAlreadyExists"),
	)
	ErrRouteNotFound = errors.Normalize(
		"node route %s not found",
		errors.RFCCodeText("PADFLOW:ErrRouteNotFound"),
	)
	ErrCannotDeleteDefaultRoute = errors.Normalize(
		"node route %d is a default route and can not be deleted",
		errors.RFCCodeText("PADFLOW:ErrCannotDeleteDefaultRoute"),
	)
	ErrRemoteRouteCreateFailed = errors.Normalize(
		"create remote route from %s to %s failed, code: %d, message: %s",
		errors.RFCCodeText("PADFLOW:ErrRemoteRouteCreateFailed"),
	)
	ErrRemoteRouteDeleteFailed = errors.Normalize(
		"delete remote route from %s to %s failed, code: %d, message: %s",
		errors.RFCCodeText("PADFLOW:ErrRemoteRouteDeleteFailed"),
	)
	ErrRemoteUnavailable = errors.Normalize(
		"remote authority is unavailable",
		errors.RFCCodeText("PADFLOW:ErrRemoteUnavailable"),
	)

	// graph related errors
	ErrGraphNotFound = errors.Normalize(
		"graph %s of project %s not found",
		errors.RFCCodeText("PADFLOW:ErrGraphNotFound"),
	)
	ErrGraphNodeNotFound = errors.Normalize(
		"graph node %s not found",
		errors.RFCCodeText("PADFLOW:ErrGraphNodeNotFound"),
	)
	ErrUnknownNodeReference = errors.Normalize(
		"unknown graph node %s referenced by %s",
		errors.RFCCodeText("PADFLOW:ErrUnknownNodeReference"),
	)
	ErrDuplicateEdge = errors.Normalize(
		"duplicate edge %s -> %s",
		errors.RFCCodeText("PADFLOW:ErrDuplicateEdge"),
	)
	ErrGraphHasCycle = errors.Normalize(
		"graph has a cycle through nodes %v",
		errors.RFCCodeText("PADFLOW:ErrGraphHasCycle"),
	)
	ErrGraphExecutionInProgress = errors.Normalize(
		"graph %s has running nodes",
		errors.RFCCodeText("PADFLOW:ErrGraphExecutionInProgress"),
	)
	ErrDispatcherFailed = errors.Normalize(
		"job dispatcher failed: %s",
		errors.RFCCodeText("PADFLOW:ErrDispatcherFailed"),
	)

	// metastore related errors
	ErrMetaNewClientFail = errors.Normalize(
		"create meta client fail",
		errors.RFCCodeText("PADFLOW:ErrMetaNewClientFail"),
	)
	ErrMetaOpFail = errors.Normalize(
		"meta operation fail",
		errors.RFCCodeText("PADFLOW:ErrMetaOpFail"),
	)
	ErrMetaEntryNotFound = errors.Normalize(
		"meta entry not found",
		errors.RFCCodeText("PADFLOW:ErrMetaEntryNotFound"),
	)
	ErrMetaEntryAlreadyExists = errors.Normalize(
		"meta entry already exists",
		errors.RFCCodeText("PADFLOW:ErrMetaEntryAlreadyExists"),
	)
	ErrMetaParamsInvalid = errors.Normalize(
		"meta params invalid:%s",
		errors.RFCCodeText("PADFLOW:ErrMetaParamsInvalid"),
	)
	ErrMetaStoreUnsupported = errors.Normalize(
		"meta store type %s is not supported",
		errors.RFCCodeText("PADFLOW:ErrMetaStoreUnsupported"),
	)

	// server related errors
	ErrServeHTTP = errors.Normalize(
		"serve http on %s failed",
		errors.RFCCodeText("PADFLOW:ErrServeHTTP"),
	)
	ErrServerNotReady = errors.Normalize(
		"server is not ready",
		errors.RFCCodeText("PADFLOW:ErrServerNotReady"),
	)

	// config related errors
	ErrConfigDecode = errors.Normalize(
		"decode config file %s failed",
		errors.RFCCodeText("PADFLOW:ErrConfigDecode"),
	)
	ErrConfigUnknownItem = errors.Normalize(
		"unknown config item %s",
		errors.RFCCodeText("PADFLOW:ErrConfigUnknownItem"),
	)
	ErrConfigInvalid = errors.Normalize(
		"invalid config: %s",
		errors.RFCCodeText("PADFLOW:ErrConfigInvalid"),
	)
	ErrToTLSConfigFailed = errors.Normalize(
		"generate tls config failed",
		errors.RFCCodeText("PADFLOW:ErrToTLSConfigFailed"),
	)
)
