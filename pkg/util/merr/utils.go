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
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Code 返回给定错误对应的错误码。
func Code(err error) int32 {
	if err == nil {
		return 0
	}

	cause := errors.Cause(err)
	switch specificErr := cause.(type) {
	case ringerError:
		return specificErr.code()

	default:
		if errors.Is(specificErr, context.Canceled) {
			return CanceledCode
		} else if errors.Is(specificErr, context.DeadlineExceeded) {
			return TimeoutCode
		} else {
			return errUnexpected.code()
		}
	}
}

func IsRetryableErr(err error) bool {
	var rerr ringerError
	if errors.As(err, &rerr) {
		return rerr.retriable
	}
	return false
}

func IsCanceledOrTimeout(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func WrapErrAsInputError(err error) error {
	if merr, ok := err.(ringerError); ok {
		WithErrorType(InputError)(&merr)
		return merr
	}
	return err
}

func GetErrorType(err error) ErrorType {
	if merr, ok := err.(ringerError); ok {
		return merr.errType
	}

	return SystemError
}

// Class registration related
func WrapErrInconsistentHierarchy(class string, msg ...string) error {
	err := wrapFields(ErrInconsistentHierarchy, value("class", class))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrInvalidVersion(class string, version int) error {
	return wrapFieldsWithDesc(ErrInvalidVersion,
		"version must be a non-negative integer",
		value("class", class),
		value("version", version),
	)
}

func WrapErrClassAlreadyRegistered(class string) error {
	return wrapFields(ErrClassAlreadyRegistered, value("class", class))
}

func WrapErrClassNotFound(module, name string, msg ...string) error {
	err := wrapFields(ErrClassNotFound, value("module", module), value("class", name))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrClassNotStreamable(class string) error {
	return wrapFields(ErrClassNotStreamable, value("class", class))
}

func WrapErrReservedAttribute(class, attr string) error {
	return wrapFields(ErrReservedAttribute, value("class", class), value("attr", attr))
}

// Streaming related
func WrapErrAttributeNotFound(class, attr string, msg ...string) error {
	err := wrapFields(ErrAttributeNotFound, value("class", class), value("attr", attr))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrAttributeInvalid(class, attr string, cause error) error {
	err := wrapFields(ErrAttributeInvalid, value("class", class), value("attr", attr))
	if cause != nil {
		err = errors.Wrap(err, cause.Error())
	}
	return err
}

func WrapErrVersionNotFound(class, versionedClass string) error {
	return wrapFields(ErrVersionNotFound, value("class", class), value("versionedClass", versionedClass))
}

func WrapErrRawDictInvalid(reason string) error {
	return wrapFieldsWithDesc(ErrRawDictInvalid, reason)
}

// Container related
func WrapErrNotAllowedType(container string, got any, allowed any) error {
	return wrapFieldsWithDesc(ErrNotAllowedType,
		fmt.Sprintf("attempted to add to %s an object (type=%T) which is not an instance from the accepted types: %v", container, got, allowed),
	)
}

func WrapErrIndexOutOfRange(index, length int) error {
	return wrapFields(ErrIndexOutOfRange, bound("index", index, 0, length-1))
}

// IO related
func WrapErrIoKeyNotFound(key string, msg ...string) error {
	err := wrapFields(ErrIoKeyNotFound, value("key", key))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrIoFailed(key string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrIoFailed, err.Error(), value("key", key))
}

func WrapErrIoUnexpectEOF(key string, err error) error {
	if err == nil {
		return nil
	}
	return wrapFieldsWithDesc(ErrIoUnexpectEOF, err.Error(), value("key", key))
}

func WrapErrCodecUnsupported(format string, msg ...string) error {
	err := wrapFields(ErrCodecUnsupported, value("format", format))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrIoCorrupted(key string, msg ...string) error {
	err := wrapFields(ErrIoCorrupted, value("key", key))
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

// Parameter related
func WrapErrParameterInvalid[T any](expected, actual T, msg ...string) error {
	err := wrapFields(ErrParameterInvalid,
		value("expected", expected),
		value("actual", actual),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrParameterInvalidMsg(fmt string, args ...any) error {
	return errors.Wrapf(ErrParameterInvalid, fmt, args...)
}

func WrapErrParameterMissing[T any](param T, msg ...string) error {
	err := wrapFields(ErrParameterMissing,
		value("missing_param", param),
	)
	if len(msg) > 0 {
		err = errors.Wrap(err, strings.Join(msg, "->"))
	}
	return err
}

func WrapErrOperationNotSupported(op string) error {
	return wrapFields(ErrOperationNotSupported, value("operation", op))
}

func wrapFields(err ringerError, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.detail = err.msg
	return err
}

func wrapFieldsWithDesc(err ringerError, desc string, fields ...errorField) error {
	for i := range fields {
		err.msg += fmt.Sprintf("[%s]", fields[i].String())
	}
	err.msg += ": " + desc
	err.detail = err.msg
	return err
}

type errorField interface {
	String() string
}

type valueField struct {
	name  string
	value any
}

func value(name string, value any) valueField {
	return valueField{
		name,
		value,
	}
}

func (f valueField) String() string {
	return fmt.Sprintf("%s=%v", f.name, f.value)
}

type boundField struct {
	name  string
	value any
	lower any
	upper any
}

func bound(name string, value, lower, upper any) boundField {
	return boundField{
		name,
		value,
		lower,
		upper,
	}
}

func (f boundField) String() string {
	return fmt.Sprintf("%v out of range %v <= %s <= %v", f.value, f.lower, f.name, f.upper)
}
