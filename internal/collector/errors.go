package collector

import (
	"errors"
	"fmt"
)

// ErrNoData is wrapped by a FetchError when the provider answered without a payload.
var ErrNoData = errors.New("no data returned")

// ErrorKind classifies why an extraction failed.
type ErrorKind string

const (
	KindRequest   ErrorKind = "request"
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindDecode    ErrorKind = "decode"
	KindNoData    ErrorKind = "no_data"
)

// FetchError is returned by every fetcher in this package.
type FetchError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns the kind of a FetchError anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
