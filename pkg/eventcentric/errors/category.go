package errors

import (
	"errors"
	"fmt"
)

// Category represents how an error should be handled by the caller.
type Category int

const (
	// CategoryTransient indicates reloading and retrying the use case will
	// likely help. Concurrency conflicts are transient.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: invalid contract names, unknown contracts, corrupt payloads.
	CategoryPermanent

	// CategoryCaller indicates the caller misused the API and can recover
	// by calling something else, e.g. Get instead of Track.
	CategoryCaller
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryCaller:
		return "caller"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Attempts is the number of attempts that have been made.
	Attempts int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Attempts)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a categorized error for err after the given number
// of attempts.
func NewCategorized(err error, category Category, attempts int, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Attempts: attempts,
		Context:  context,
	}
}

// Categorize determines how an error should be handled.
//
// An error joining several failures (as UnitOfWork.Commit returns) is
// transient only if every joined failure is transient.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		if len(errs) == 0 {
			return CategoryPermanent
		}
		for _, e := range errs {
			if Categorize(e) != CategoryTransient {
				return CategoryPermanent
			}
		}
		return CategoryTransient
	}

	switch {
	case errors.Is(err, ErrConcurrency):
		return CategoryTransient
	case errors.Is(err, ErrAggregateAlreadyTracked):
		return CategoryCaller
	default:
		return CategoryPermanent
	}
}

// IsConflict reports whether err is (or wraps) a concurrency conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrency)
}
