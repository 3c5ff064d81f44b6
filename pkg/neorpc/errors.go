package neorpc

import (
	"fmt"
	"net/http"
)

// Error represents JSON-RPC 2.0 error type.
type Error struct {
	Code     int64  `json:"code"`
	HTTPCode int    `json:"-"`
	Message  string `json:"message"`
	Data     string `json:"data,omitempty"`
}

// Standard RPC error codes defined by the JSON-RPC 2.0 specification.
const (
	// ParseErrorCode is returned for parse errors.
	ParseErrorCode = -32700
	// InvalidRequestCode is returned for invalid requests.
	InvalidRequestCode = -32600
	// MethodNotFoundCode is returned for unknown methods.
	MethodNotFoundCode = -32601
	// InvalidParamsCode is returned for invalid request parameters.
	InvalidParamsCode = -32602
	// InternalServerErrorCode is returned for internal RPC server error.
	InternalServerErrorCode = -32603
)

// Bridge-specific error codes.
const (
	// RPCErrorCode is returned for generic bridge errors.
	RPCErrorCode = -100
	// UnauthorizedCode is returned when fulfillment is attempted by an
	// identity other than the oracle.
	UnauthorizedCode = -403
	// InternalBridgeErrorCode is returned when the bridge failed to execute
	// an otherwise valid call (e.g. requester callback failure).
	InternalBridgeErrorCode = -500
)

var (
	// ErrInvalidParams represents a generic 'invalid parameters' error.
	ErrInvalidParams = NewInvalidParamsError("invalid params")
	// ErrUnknownQuery is returned for queries that never existed or have
	// already been fulfilled.
	ErrUnknownQuery = NewRPCError("Unknown query", "")
	// ErrUnauthorized is returned for fulfill calls signed by a non-oracle key.
	ErrUnauthorized = NewError(UnauthorizedCode, http.StatusForbidden, "Unauthorized", "")
	// ErrInvocationFailed is returned when the bridge aborted the call.
	ErrInvocationFailed = NewError(InternalBridgeErrorCode, http.StatusUnprocessableEntity, "Invocation failed", "")
	// ErrReplayedNonce is returned for signed calls reusing a nonce.
	ErrReplayedNonce = NewRPCError("Nonce already used", "")
)

// NewError is an Error constructor that takes Error contents from its
// parameters.
func NewError(code int64, httpCode int, message string, data string) *Error {
	return &Error{
		Code:     code,
		HTTPCode: httpCode,
		Message:  message,
		Data:     data,
	}
}

// NewParseError creates a new error with code
// -32700.
func NewParseError(data string) *Error {
	return NewError(ParseErrorCode, http.StatusBadRequest, "Parse Error", data)
}

// NewInvalidRequestError creates a new error with
// code -32600.
func NewInvalidRequestError(data string) *Error {
	return NewError(InvalidRequestCode, http.StatusUnprocessableEntity, "Invalid Request", data)
}

// NewMethodNotFoundError creates a new error with
// code -32601.
func NewMethodNotFoundError(data string) *Error {
	return NewError(MethodNotFoundCode, http.StatusMethodNotAllowed, "Method not found", data)
}

// NewInvalidParamsError creates a new error with
// code -32602.
func NewInvalidParamsError(data string) *Error {
	return NewError(InvalidParamsCode, http.StatusUnprocessableEntity, "Invalid Params", data)
}

// NewInternalServerError creates a new error with
// code -32603.
func NewInternalServerError(data string) *Error {
	return NewError(InternalServerErrorCode, http.StatusInternalServerError, "Internal error", data)
}

// NewRPCError creates a new error with
// code -100.
func NewRPCError(message string, data string) *Error {
	return NewError(RPCErrorCode, http.StatusUnprocessableEntity, message, data)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is denotes whether the error matches the target one. Errors are matched by
// code only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WrapErrorWithData returns copy of the given error with the specified data and cause.
// It does not modify the source error.
func WrapErrorWithData(e *Error, data string) *Error {
	return NewError(e.Code, e.HTTPCode, e.Message, data)
}
