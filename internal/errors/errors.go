// Package errors provides centralized error handling with category and
// component metadata for consistent logging across the ingestion pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCategory represents the type of error for better categorization.
type ErrorCategory string

const (
	CategoryValidation       ErrorCategory = "validation"
	CategoryFileIO           ErrorCategory = "file-io"
	CategoryNetwork          ErrorCategory = "network"
	CategoryDatabase         ErrorCategory = "database"
	CategoryConfiguration    ErrorCategory = "configuration"
	CategoryJournalParsing   ErrorCategory = "journal-parsing"
	CategoryFeedMessage      ErrorCategory = "feed-message"
	CategoryFeedConnection   ErrorCategory = "feed-connection"
	CategoryCoordinateLookup ErrorCategory = "coordinate-lookup"
	CategoryImport           ErrorCategory = "import"
	CategoryNotFound         ErrorCategory = "not-found"
	CategoryTimeout          ErrorCategory = "timeout"
	CategoryGeneric          ErrorCategory = "generic"
)

// EnhancedError wraps an error with category, component and context metadata.
type EnhancedError struct {
	Err       error
	Component string
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time
}

// Error implements the error interface.
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface.
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is matches on category when the target is another EnhancedError, and
// otherwise defers to the wrapped error chain.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return stderrors.Is(ee.Err, target)
}

// LogAttrs returns the metadata in a shape convenient for slog key-value
// pairs: ("component", c, "category", cat, context pairs..., "error", err).
func (ee *EnhancedError) LogAttrs() []any {
	attrs := []any{"component", ee.Component, "category", string(ee.Category)}
	for k, v := range ee.Context {
		attrs = append(attrs, k, v)
	}
	return append(attrs, "error", ee.Err.Error())
}

// ErrorBuilder provides a fluent interface for constructing EnhancedErrors.
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates an ErrorBuilder wrapping an existing error.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf creates an ErrorBuilder from a format string.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component where the error occurred.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds a key-value pair of context data.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Build creates the final EnhancedError.
func (eb *ErrorBuilder) Build() *EnhancedError {
	return &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// IsCategory reports whether any error in err's chain carries the category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.Category == category
	}
	return false
}

// Re-exports so callers do not need both this package and stdlib errors.

func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }
func NewStd(text string) error      { return stderrors.New(text) }
