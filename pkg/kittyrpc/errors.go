package kittyrpc

import (
	"errors"
	"fmt"
)

// Error represents JSON-RPC 2.0 error type.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Standard RPC error codes defined by the JSON-RPC 2.0 specification.
const (
	// InternalServerErrorCode is returned for internal RPC server error.
	InternalServerErrorCode = -32603
	// BadRequestCode is returned on parse error.
	BadRequestCode = -32700
	// InvalidRequestCode is returned on invalid request.
	InvalidRequestCode = -32600
	// MethodNotFoundCode is returned on unknown method calling.
	MethodNotFoundCode = -32601
	// InvalidParamsCode is returned on request with invalid params.
	InvalidParamsCode = -32602
)

// Ledger error codes, one per ledger error kind.
const (
	// NotFoundCode is returned when the kitty, block or execution log
	// requested doesn't exist.
	NotFoundCode = -100
	// NotOwnerCode is returned when the sender doesn't own the kitty.
	NotOwnerCode = -101
	// CapacityCode is returned when a limit or a counter is exceeded.
	CapacityCode = -102
	// NotAllowedCode is returned for calls rejected by the ledger rules.
	NotAllowedCode = -103
	// DuplicateCode is returned when the kitty DNA is already taken.
	DuplicateCode = -104
	// PaymentCode is returned when the balance transfer fails.
	PaymentCode = -105
)

var (
	// ErrInvalidParams represents a generic "Invalid params" error.
	ErrInvalidParams = NewInvalidParamsError("Invalid params")
	// ErrUnknownKitty is returned for missing kitties.
	ErrUnknownKitty = NewError(NotFoundCode, "Unknown kitty", "")
	// ErrUnknownBlock is returned for missing blocks and execution logs.
	ErrUnknownBlock = NewError(NotFoundCode, "Unknown block", "")
	// ErrNotOwner is returned when the sender doesn't own the kitty.
	ErrNotOwner = NewError(NotOwnerCode, "Not owner", "")
	// ErrCapacity is returned when too many kitties are owned or some
	// counter overflows.
	ErrCapacity = NewError(CapacityCode, "Capacity exceeded", "")
	// ErrNotAllowed is returned for calls rejected by the ledger rules.
	ErrNotAllowed = NewError(NotAllowedCode, "Not allowed", "")
	// ErrDuplicate is returned when the kitty DNA is already taken.
	ErrDuplicate = NewError(DuplicateCode, "Duplicate kitty", "")
	// ErrPayment is returned when the payment can't be made.
	ErrPayment = NewError(PaymentCode, "Payment failed", "")
)

// NewError is an Error constructor that takes Error contents from its
// parameters.
func NewError(code int64, message string, data string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewParseError creates a new error with code
// -32700.
func NewParseError(data string) *Error {
	return NewError(BadRequestCode, "Parse error", data)
}

// NewInvalidRequestError creates a new error with
// code -32600.
func NewInvalidRequestError(data string) *Error {
	return NewError(InvalidRequestCode, "Invalid request", data)
}

// NewMethodNotFoundError creates a new error with
// code -32601.
func NewMethodNotFoundError(data string) *Error {
	return NewError(MethodNotFoundCode, "Method not found", data)
}

// NewInvalidParamsError creates a new error with
// code -32602.
func NewInvalidParamsError(data string) *Error {
	return NewError(InvalidParamsCode, "Invalid params", data)
}

// NewInternalServerError creates a new error with
// code -32603.
func NewInternalServerError(data string) *Error {
	return NewError(InternalServerErrorCode, "Internal error", data)
}

// WrapErrorWithData returns copy of the given error with the specified data
// and cause. It does not modify the source error.
func WrapErrorWithData(e *Error, data string) *Error {
	return NewError(e.Code, e.Message, data)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is denotes whether the error matches the target one.
func (e *Error) Is(target error) bool {
	var clTarget *Error
	if errors.As(target, &clTarget) {
		return e.Code == clTarget.Code
	}
	return false
}
