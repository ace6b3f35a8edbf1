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
	"context"
	stderrors "errors"

	"github.com/pingcap/errors"
)

// re-exports of github.com/pingcap/errors so callers only import one package
type (
	// Error is a normalized error carrying an RFC code.
	Error = errors.Error
	// RFCErrorCode is the RFC code of an Error.
	RFCErrorCode = errors.RFCErrorCode
)

var (
	New        = errors.New
	Errorf     = errors.Errorf
	Trace      = errors.Trace
	Annotate   = errors.Annotate
	Cause      = errors.Cause
	ErrorStack = errors.ErrorStack
)

// WrapError generates a new error based on given `*errors.Error`, wraps the err
// as cause error.
// If given `err` is nil, returns a nil error, which a the different behavior
// against `Wrap` function in pingcap/errors.
func WrapError(rfcError *errors.Error, err error, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByArgs(args...)
}

// Is reports whether any error in err's chain matches target. Normalized
// errors match by their RFC code, so an error generated by GenWithStackByArgs
// matches the error it was generated from, on either side.
func Is(err, target error) bool {
	code, hasCode := RFCCode(target)
	for err != nil {
		if err == target || stderrors.Is(err, target) {
			return true
		}
		if terr, ok := err.(*errors.Error); ok && hasCode && terr.RFCCode() == code {
			return true
		}
		err = next(err)
	}
	return false
}

// RFCCode returns the first RFC error code found in err's chain.
func RFCCode(err error) (errors.RFCErrorCode, bool) {
	for err != nil {
		if terr, ok := err.(*errors.Error); ok {
			return terr.RFCCode(), true
		}
		err = next(err)
	}
	return "", false
}

// IsContextCanceledError checks whether the error is caused by context
// cancellation or deadline.
func IsContextCanceledError(err error) bool {
	cause := errors.Cause(err)
	return cause == context.Canceled || cause == context.DeadlineExceeded ||
		stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// next steps one level down the error chain, preferring pingcap style causes.
func next(err error) error {
	if c, ok := err.(interface{ Cause() error }); ok {
		if cause := c.Cause(); cause != err {
			return cause
		}
	}
	return stderrors.Unwrap(err)
}
