package core

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrorCode int
type ErrorCode int

const (
	// ErrUnknown unkown
	ErrUnknown ErrorCode = 100000
	// ErrOperationForbidden operation forbidden, caller is not the owner or admin
	ErrOperationForbidden ErrorCode = 100001
	// ErrReentrant nested call into the ledger
	ErrReentrant ErrorCode = 100002

	// ErrAssetNotFound no asset
	ErrAssetNotFound ErrorCode = 100100
	// ErrInvalidAmount invalid amount
	ErrInvalidAmount ErrorCode = 100101
	// ErrActionPaused action blocked by a pause bit
	ErrActionPaused ErrorCode = 100102
	// ErrInsufficientCollateral debt would exceed the collateral limit
	ErrInsufficientCollateral ErrorCode = 100103
	// ErrLiquidationNotAllowed liquidation not allowed
	ErrLiquidationNotAllowed ErrorCode = 100104
	// ErrReserveExceeded reserve buffer or pending repay limit exceeded
	ErrReserveExceeded ErrorCode = 100105
	// ErrBackendCallFailure backend adapter call reverted
	ErrBackendCallFailure ErrorCode = 100106
	// ErrConfiguration invalid admin parameters
	ErrConfiguration ErrorCode = 100107
	// ErrInsufficientLiquidity neither the buffer nor the backends can serve the amount
	ErrInsufficientLiquidity ErrorCode = 100108
	// ErrInsufficientBalance receipt balance too low
	ErrInsufficientBalance ErrorCode = 100109
	// ErrInvalidPrice invalid price
	ErrInvalidPrice ErrorCode = 100110
	// ErrBackendNotFound no backend at index
	ErrBackendNotFound ErrorCode = 100111
	// ErrDepositNotFound no custody deposit funds the request
	ErrDepositNotFound ErrorCode = 100112
	// ErrDepositConsumed deposit already funded an operation
	ErrDepositConsumed ErrorCode = 100113
)

func (e ErrorCode) String() string {
	return strconv.Itoa(int(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

// Error coded error with message
type Error struct {
	Code ErrorCode
	Msg  string
	Err  error
}

// NewError new coded error
func NewError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// WrapError wrap err with code
func WrapError(code ErrorCode, err error, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Code, e.Msg, e.Err)
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches by code, so errors.Is(err, ErrActionPaused) works on wrapped errors
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return e.Code == t
	case *Error:
		return e.Code == t.Code
	}

	return false
}

// CodeOf extract the error code, ErrUnknown for foreign errors
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}

	return ErrUnknown
}
