package host

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an error for reporting. A configuration pass never
// retries, so every class the orchestrator produces today is permanent.
type ErrorClass string

const (
	// ErrorClassPermanent indicates a failure that re-running the pass with the
	// same inputs will reproduce.
	ErrorClassPermanent ErrorClass = "permanent"

	// ErrorClassEnvironment indicates a failure caused by the surrounding
	// environment (missing git binary, unreadable repository).
	ErrorClassEnvironment ErrorClass = "environment"
)

// Error represents a classified configuration error with context.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Project is the project being configured, if known.
	Project string `json:"project,omitempty"`

	// Step is the plugin or configuration step that failed.
	Step string `json:"step,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg = fmt.Sprintf("%s (step=%s)", msg, e.Step)
	}
	if e.Project != "" {
		msg = fmt.Sprintf("%s (project=%s)", msg, e.Project)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Class, msg, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors with the same class and code, so sentinel values can be
// used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewPermanentError creates a new permanent error.
func NewPermanentError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassPermanent,
		Message: message,
		Err:     err,
	}
}

// NewEnvironmentError creates a new environment error.
func NewEnvironmentError(message string, err error) *Error {
	return &Error{
		Class:   ErrorClassEnvironment,
		Message: message,
		Err:     err,
	}
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithProject adds project context to an error.
func (e *Error) WithProject(name string) *Error {
	e.Project = name
	return e
}

// WithStep adds step context to an error.
func (e *Error) WithStep(step string) *Error {
	e.Step = step
	return e
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Common error codes.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeExtensionNotFound = "EXTENSION_NOT_FOUND"
	ErrCodeTaskNotFound      = "TASK_NOT_FOUND"
	ErrCodePluginNotFound    = "PLUGIN_NOT_FOUND"
	ErrCodePropertyNotFound  = "PROPERTY_NOT_FOUND"
	ErrCodeDuplicate         = "ALREADY_EXISTS"
	ErrCodePrecondition      = "PRECONDITION_FAILED"
	ErrCodePluginFailed      = "PLUGIN_FAILED"
	ErrCodeRepository        = "REPOSITORY_ERROR"
	ErrCodeLifecycle         = "LIFECYCLE_ERROR"
	ErrCodeCallbackFailed    = "CALLBACK_FAILED"
)

// Sentinels for errors.Is. They compare by class and code only.
var (
	ErrExtensionNotFound = &Error{Class: ErrorClassPermanent, Code: ErrCodeExtensionNotFound}
	ErrTaskNotFound      = &Error{Class: ErrorClassPermanent, Code: ErrCodeTaskNotFound}
	ErrPluginNotFound    = &Error{Class: ErrorClassPermanent, Code: ErrCodePluginNotFound}
	ErrPropertyNotFound  = &Error{Class: ErrorClassPermanent, Code: ErrCodePropertyNotFound}
	ErrLifecycle         = &Error{Class: ErrorClassPermanent, Code: ErrCodeLifecycle}
)
