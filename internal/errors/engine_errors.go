package errors

import "fmt"

// ErrorCategory distinguishes true engine faults. Normal risk rejections
// are not errors at all; they are returned as RiskAssessment values.
type ErrorCategory string

const (
	// Faults that should stop the engine from making decisions
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Faults at a collaborator boundary; the caller decides whether a
	// missing feed means conservative auto-reject
	ErrorCategoryData ErrorCategory = "DATA_UNAVAILABLE"

	// Invalid input from the caller
	ErrorCategoryValidation ErrorCategory = "VALIDATION"

	// Persistence and other internal faults
	ErrorCategoryInternal ErrorCategory = "INTERNAL"
)

// EngineError is a categorized error with component context
type EngineError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether the failed operation can be retried
func (e *EngineError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this fault should stop the engine
func (e *EngineError) IsFatal() bool {
	return e.Category == ErrorCategoryConfiguration
}

// NewConfigurationError reports an invalid or missing configuration value
func NewConfigurationError(component, operation, message string) *EngineError {
	return &EngineError{
		Category:  ErrorCategoryConfiguration,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// NewDataUnavailableError reports a collaborator feed failure during
// evaluation, e.g. the order book could not be fetched for the cost gate
func NewDataUnavailableError(component, operation string, err error) *EngineError {
	return &EngineError{
		Category:   ErrorCategoryData,
		Component:  component,
		Operation:  operation,
		Message:    "required market data unavailable",
		Underlying: err,
		Retryable:  true,
	}
}

// NewValidationError reports invalid caller input
func NewValidationError(component, operation, message string) *EngineError {
	return &EngineError{
		Category:  ErrorCategoryValidation,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// WrapInternal wraps an unexpected internal fault
func WrapInternal(component, operation string, err error) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{
		Category:   ErrorCategoryInternal,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Retryable:  true,
	}
}
