// Package domain defines core types, interfaces, and errors for the analysis pipeline.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input outside of the plan itself
// (CLI arguments, configuration values).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// PlanError indicates a malformed or incomplete analysis plan. It is always a
// client-side input problem and is never retried.
type PlanError struct {
	Field   string // offending plan field, e.g. "metrics[1].aggregation"
	Message string
}

func (e *PlanError) Error() string {
	if e.Field == "" {
		return "invalid plan: " + e.Message
	}
	return fmt.Sprintf("invalid plan: %s: %s", e.Field, e.Message)
}

// Safety gate rule identifiers reported in SafetyViolation.Rule.
const (
	RuleEmpty          = "empty"
	RuleKeyword        = "keyword"
	RuleComment        = "comment"
	RuleMultiStatement = "multi_statement"
)

// SafetyViolation indicates that a SQL string was rejected by the safety gate.
// It is a security rejection, distinct from PlanError.
type SafetyViolation struct {
	Rule    string
	Keyword string // set when Rule == RuleKeyword
	Message string
}

func (e *SafetyViolation) Error() string { return "unsafe SQL: " + e.Message }

// ExecutionTimeout indicates a query exceeded its deadline and was aborted.
type ExecutionTimeout struct {
	Timeout time.Duration
	SQL     string
}

func (e *ExecutionTimeout) Error() string {
	return fmt.Sprintf("query execution exceeded timeout of %s", e.Timeout)
}

// ExecutionError wraps a database driver failure. The driver message is kept verbatim.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string { return "query execution failed: " + e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrPlan creates a PlanError for the given field with a formatted message.
func ErrPlan(field, format string, args ...interface{}) *PlanError {
	return &PlanError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrSafety creates a SafetyViolation for the given rule with a formatted message.
func ErrSafety(rule, format string, args ...interface{}) *SafetyViolation {
	return &SafetyViolation{Rule: rule, Message: fmt.Sprintf(format, args...)}
}

// ErrorKind returns a short stable name for the pipeline error class of err,
// or "internal" when err does not wrap one of the domain errors.
func ErrorKind(err error) string {
	var (
		planErr     *PlanError
		safetyErr   *SafetyViolation
		timeoutErr  *ExecutionTimeout
		execErr     *ExecutionError
		validErr    *ValidationError
		notFoundErr *NotFoundError
	)
	switch {
	case errors.As(err, &planErr):
		return "plan_error"
	case errors.As(err, &safetyErr):
		return "safety_violation"
	case errors.As(err, &timeoutErr):
		return "execution_timeout"
	case errors.As(err, &execErr):
		return "execution_error"
	case errors.As(err, &validErr):
		return "validation_error"
	case errors.As(err, &notFoundErr):
		return "not_found"
	default:
		return "internal"
	}
}
