package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDailyLogNotFound is returned when no log exists for a date
	ErrDailyLogNotFound = errors.New("daily log not found")

	// ErrInvalidFoodEntry is returned for manual entries with negative amounts
	ErrInvalidFoodEntry = errors.New("invalid food entry")
)

// LookupErrorKind classifies barcode resolution failures
type LookupErrorKind string

const (
	// InvalidBarcode: no digits left after normalization. Not retried.
	InvalidBarcode LookupErrorKind = "invalid_barcode"
	// NotFound: neither the code nor its leading-zero variant matched.
	NotFound LookupErrorKind = "not_found"
	// NetworkError: transport or service failure. Retryable by the user.
	NetworkError LookupErrorKind = "network_error"
)

// LookupError is the single error type returned by barcode resolution.
// Callers inspect Kind instead of the concrete cause.
type LookupError struct {
	Kind    LookupErrorKind
	Barcode string
	Err     error
}

func (e *LookupError) Error() string {
	switch e.Kind {
	case InvalidBarcode:
		return "invalid barcode"
	case NotFound:
		return fmt.Sprintf("food not found for barcode %s", e.Barcode)
	default:
		if e.Err != nil {
			return fmt.Sprintf("network error: %v", e.Err)
		}
		return "network error"
	}
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// NewLookupError builds a LookupError of the given kind
func NewLookupError(kind LookupErrorKind, barcode string, err error) *LookupError {
	return &LookupError{Kind: kind, Barcode: barcode, Err: err}
}

// LookupErrorKindOf returns the kind of a lookup error anywhere in err's
// chain, and false if err is not a lookup error.
func LookupErrorKindOf(err error) (LookupErrorKind, bool) {
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Kind, true
	}
	return "", false
}
