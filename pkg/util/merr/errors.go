// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Class registration related
	ErrInconsistentHierarchy  = newRingerError("inconsistent hierarchy, no C3 linearization is possible", 100, false)
	ErrInvalidVersion         = newRingerError("invalid class version", 101, false)
	ErrClassAlreadyRegistered = newRingerError("class already registered", 102, false)
	ErrClassNotFound          = newRingerError("class not found", 103, false)
	ErrClassNotStreamable     = newRingerError("class has no streaming capability", 104, false)
	ErrReservedAttribute      = newRingerError("attribute name collides with a reserved raw dict key", 105, false)

	// Streaming related
	ErrAttributeNotFound = newRingerError("attribute not found", 200, false)
	ErrAttributeInvalid  = newRingerError("attribute cannot be assigned", 201, false)
	ErrVersionNotFound   = newRingerError("version not found for versioned class", 202, false)
	ErrRawDictInvalid    = newRingerError("value is not in raw dict format", 203, false)

	// Container related
	ErrNotAllowedType  = newRingerError("type not allowed", 300, false)
	ErrIndexOutOfRange = newRingerError("index out of range", 301, false)

	// IO related
	ErrIoKeyNotFound    = newRingerError("key not found", 1000, false)
	ErrIoFailed         = newRingerError("IO failed", 1001, true)
	ErrIoUnexpectEOF    = newRingerError("unexpected EOF", 1002, true)
	ErrCodecUnsupported = newRingerError("unsupported storage format", 1003, false)
	ErrIoCorrupted      = newRingerError("payload corrupted", 1004, false)

	// Parameter related
	ErrParameterInvalid = newRingerError("invalid parameter", 1100, false)
	ErrParameterMissing = newRingerError("missing parameter", 1101, false)

	// General
	ErrOperationNotSupported = newRingerError("unsupported operation", 3000, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to ringerError
	errUnexpected = newRingerError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*ringerError)

func WithErrorType(etype ErrorType) errorOption {
	return func(err *ringerError) {
		err.errType = etype
	}
}

type ringerError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newRingerError(msg string, code int32, retriable bool, options ...errorOption) ringerError {
	err := ringerError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e ringerError) code() int32 {
	return e.errCode
}

func (e ringerError) Error() string {
	return e.msg
}

func (e ringerError) Detail() string {
	return e.detail
}

func (e ringerError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(ringerError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// 多个错误的 cause 定义为最后一个错误。
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}

func Combine(errs ...error) error {
	errs = lo.Filter(errs, func(err error, _ int) bool { return err != nil })
	if len(errs) == 0 {
		return nil
	}
	return multiErrors{
		errs,
	}
}
