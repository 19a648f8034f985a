package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	// KindSchema covers undeclared tables, bad relation declarations and
	// disconnected join paths.
	KindSchema ErrorKind = "SchemaError"
	// KindBackend covers queries rejected by the row store.
	KindBackend ErrorKind = "BackendQueryError"
	// KindParam covers malformed requests.
	KindParam ErrorKind = "ParamError"
)

// Response codes shared with existing clients of the service.
const (
	CodeOK         = "0000"
	CodeDBError    = "2000"
	CodeDataError  = "2003"
	CodeParamError = "2101"
	CodeUnknown    = "2400"
)

// MsgTableNotExist is reported when the backend does not know a table.
const MsgTableNotExist = "TABLE_NOT_EXIST"

// Error is the error type returned by the query engine and its collaborators.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SchemaErrorf builds a KindSchema error.
func SchemaErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindSchema, Code: CodeDataError, Message: fmt.Sprintf(format, args...)}
}

// ParamErrorf builds a KindParam error.
func ParamErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindParam, Code: CodeParamError, Message: fmt.Sprintf(format, args...)}
}

// BackendError wraps a row store failure. Table-not-found failures keep a
// distinct code so clients can tell them apart from other query failures.
func BackendError(err error, tableNotFound bool) *Error {
	if tableNotFound {
		return &Error{Kind: KindBackend, Code: CodeDBError, Message: MsgTableNotExist, Err: err}
	}
	return &Error{Kind: KindBackend, Code: CodeParamError, Message: "query data failed", Err: err}
}

// IsKind reports whether err wraps a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
