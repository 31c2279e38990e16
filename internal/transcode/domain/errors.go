package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by a transcode task.
var (
	// ErrValidation missing/malformed request fields, never retried
	ErrValidation = errors.New("validation error")
	// ErrTransfer blob download/upload failure
	ErrTransfer = errors.New("transfer error")
	// ErrEncode encoder process failed or exited abnormally
	ErrEncode = errors.New("encode error")
)

// Validation causes
var (
	ErrMissingSource     = errors.New("missing bucketName or key")
	ErrUnsupportedFormat = errors.New("unsupported outputFormat")
	ErrMalformedMessage  = errors.New("malformed job message")
)

// TaskError 帶有失敗時狀態的錯誤
type TaskError struct {
	Kind  error
	State State
	Op    string
	Err   error
}

func (e *TaskError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap lets errors.Is match both the kind and the cause.
func (e *TaskError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewValidationError create validation error
func NewValidationError(op string, err error) *TaskError {
	return &TaskError{Kind: ErrValidation, State: StateReceived, Op: op, Err: err}
}

// NewTransferError create transfer error
func NewTransferError(state State, op string, err error) *TaskError {
	return &TaskError{Kind: ErrTransfer, State: state, Op: op, Err: err}
}

// NewEncodeError create encode error
func NewEncodeError(op string, err error) *TaskError {
	return &TaskError{Kind: ErrEncode, State: StateEncoding, Op: op, Err: err}
}

// FailedState 取出失敗時所在狀態，非 TaskError 回傳空字串
func FailedState(err error) State {
	var te *TaskError
	if errors.As(err, &te) {
		return te.State
	}
	return ""
}

// IsRetryable validation error 不重試，其他交給 queue redeliver
func IsRetryable(err error) bool {
	return err != nil && !errors.Is(err, ErrValidation)
}
