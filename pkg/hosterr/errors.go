// Package hosterr defines the error taxonomy shared by the loader, the
// instance lifecycle and the processing engine.
//
// Setup and teardown paths build errors with the constructors below, which
// attach context and user-facing messages. The realtime path only returns the
// pre-built sentinels declared in sentinels.go so that a failed block never
// allocates.
package hosterr

import (
	"errors"

	goerrors "github.com/agilira/go-errors"
)

// Error codes
const (
	// Module errors (1000-1099)
	CodeNotFound     = "HOST_1001"
	CodeLoadError    = "HOST_1002"
	CodeBindingError = "HOST_1003"

	// Lifecycle errors (1100-1199)
	CodeInvalidHandle = "HOST_1101"
	CodeInvalidState  = "HOST_1102"
	CodeDisposed      = "HOST_1103"

	// Argument errors (1200-1299)
	CodeInvalidArgument = "HOST_1201"

	// Processing errors (1300-1399)
	CodeProcessingFailure = "HOST_1301"

	// State errors (1400-1499)
	CodeStateError = "HOST_1401"
)

// NotFound reports a module or plugin path that does not exist.
func NotFound(path string) *goerrors.Error {
	return goerrors.New(CodeNotFound, "Module not found").
		WithUserMessage("The plugin module could not be found").
		WithContext("path", path).
		WithSeverity("error")
}

// LoadError reports a module the runtime refused to open.
func LoadError(path string, cause error) *goerrors.Error {
	if cause == nil {
		return goerrors.New(CodeLoadError, "Module load failed").
			WithUserMessage("The plugin module could not be loaded").
			WithContext("path", path).
			WithSeverity("error")
	}
	return goerrors.Wrap(cause, CodeLoadError, "Module load failed").
		WithUserMessage("The plugin module could not be loaded").
		WithContext("path", path).
		WithSeverity("error")
}

// BindingError reports a required entry point that is absent or has the
// wrong signature.
func BindingError(symbol, reason string) *goerrors.Error {
	return goerrors.New(CodeBindingError, "Entry point binding failed: "+symbol).
		WithUserMessage("The plugin module does not export a required entry point").
		WithContext("symbol", symbol).
		WithContext("reason", reason).
		WithSeverity("error")
}

// InvalidHandle reports an operation on a module or instance that is not
// (or no longer) valid.
func InvalidHandle(what string) *goerrors.Error {
	return goerrors.New(CodeInvalidHandle, "Invalid handle").
		WithUserMessage("The handle does not refer to a loaded module or instance").
		WithContext("handle", what).
		WithSeverity("error")
}

// InvalidState reports a lifecycle precondition that is not met.
func InvalidState(op, state string) *goerrors.Error {
	return goerrors.New(CodeInvalidState, "Operation not allowed in current state").
		WithUserMessage("The plugin instance is not in a state that allows this operation").
		WithContext("operation", op).
		WithContext("state", state).
		WithSeverity("error")
}

// Disposed reports a call on a released instance.
func Disposed(op string) *goerrors.Error {
	return goerrors.New(CodeDisposed, "Instance disposed").
		WithUserMessage("The plugin instance has been released").
		WithContext("operation", op).
		WithSeverity("error")
}

// InvalidArgument reports a malformed argument.
func InvalidArgument(name, reason string) *goerrors.Error {
	return goerrors.New(CodeInvalidArgument, "Invalid argument: "+name).
		WithUserMessage(reason).
		WithContext("argument", name).
		WithSeverity("error")
}

// ProcessingFailure reports a block the plugin could not process. The caller
// may retry with the next block.
func ProcessingFailure(reason string, cause error) *goerrors.Error {
	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, CodeProcessingFailure, "Processing failed")
	} else {
		err = goerrors.New(CodeProcessingFailure, "Processing failed")
	}
	return err.
		WithUserMessage(reason).
		WithSeverity("warning").
		AsRetryable()
}

// StateError reports malformed state or preset data.
func StateError(reason string, cause error) *goerrors.Error {
	if cause == nil {
		return goerrors.New(CodeStateError, "Invalid state data").
			WithUserMessage(reason).
			WithSeverity("error")
	}
	return goerrors.Wrap(cause, CodeStateError, "Invalid state data").
		WithUserMessage(reason).
		WithSeverity("error")
}

// Code returns the error code carried by err, or "" if err is not a coded
// error.
func Code(err error) string {
	var e *goerrors.Error
	if errors.As(err, &e) {
		return string(e.ErrorCode())
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

// IsRetryable reports whether the operation that produced err may be retried.
func IsRetryable(err error) bool {
	var e *goerrors.Error
	if errors.As(err, &e) {
		return e.IsRetryable()
	}
	return false
}
