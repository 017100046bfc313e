package common

import (
	"errors"
	"fmt"
	"strings"

	"memtool/internal/memtool"
)

// Error is the error object returned by the access layer, the range parser
// and the command layer. Code classifies the failure, Op names the component
// or call that failed and Err carries the underlying OS error, if any.
type Error struct {
	Code    memtool.Err
	Op      string
	Message string
	Err     error
}

// Sentinel errors carrying only a code. errors.Is(err, ErrRange) matches any
// *Error with the same code.
var (
	ErrSyntax     = &Error{Code: memtool.ErrSyntax}
	ErrRange      = &Error{Code: memtool.ErrRange}
	ErrInvalidArg = &Error{Code: memtool.ErrInvalidArg}
	ErrIO         = &Error{Code: memtool.ErrIO}
	ErrConfig     = &Error{Code: memtool.ErrConfig}
	ErrAlloc      = &Error{Code: memtool.ErrAlloc}
)

func NewError(code memtool.Err, op, msg string) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
	}
}

func NewErrorf(code memtool.Err, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap classifies err under code. A nil err returns nil.
func Wrap(code memtool.Err, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

func WrapMsg(code memtool.Err, op, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Err:     err,
	}
}

// Error renders "op: message: cause", leaving out empty parts. An error with
// no text at all falls back to the code description.
func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		if desc, ok := errorCodeDesc[e.Code]; ok {
			return desc.msg
		}
		return "unknown error"
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches code-only sentinels such as ErrRange.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Code == e.Code
}

// Detail renders the error with its code and description, for debug logs.
func (e *Error) Detail() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("0x%04x ", e.Code))
	if desc, ok := errorCodeDesc[e.Code]; ok {
		sb.WriteString(fmt.Sprintf("(%s) [%s]; ", desc.name, desc.msg))
	} else {
		sb.WriteString("(unknown); ")
	}
	sb.WriteString(e.Error())
	return sb.String()
}

// CodeOf extracts the error code from err. Errors that did not come through
// this package are OS failures and classify as ErrIO.
func CodeOf(err error) memtool.Err {
	if err == nil {
		return memtool.OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return memtool.ErrIO
}

type errDesc struct {
	name string
	msg  string
}

var errorCodeDesc = map[memtool.Err]errDesc{
	memtool.OK:            {"MT_OK", "No Error."},
	memtool.ErrSyntax:     {"MT_ERR_SYNTAX", "Malformed region or target specifier."},
	memtool.ErrRange:      {"MT_ERR_RANGE", "Value or offset out of range."},
	memtool.ErrInvalidArg: {"MT_ERR_INVALID_ARG", "Access width not supported by backend."},
	memtool.ErrIO:         {"MT_ERR_IO", "System call or control call failed."},
	memtool.ErrConfig:     {"MT_ERR_CONFIG", "Backend support not compiled in."},
	memtool.ErrAlloc:      {"MT_ERR_ALLOC", "Buffer or file growth allocation failed."},
	memtool.ErrLast:       {"MT_ERR_LAST", "No error - error code end marker"},
}
