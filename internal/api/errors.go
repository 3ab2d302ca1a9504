package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an upstream failure. The monitor treats all kinds
// the same; startup distinguishes the fatal ones.
type ErrorKind int

const (
	KindUnavailable ErrorKind = iota
	KindAuth
	KindNotFound
	KindRateLimited
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed"
	default:
		return "unavailable"
	}
}

// Error is the single error type surfaced by the authoritative client.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnavailable
}

// IsAuth reports whether err is a bad-credential failure.
func IsAuth(err error) bool { return kindOf(err) == KindAuth }

// IsNotFound reports whether err is an unknown-resource failure.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsTransient reports whether err is worth retrying on the normal cadence.
func IsTransient(err error) bool {
	k := kindOf(err)
	return k == KindRateLimited || k == KindUnavailable || k == KindMalformed
}

func statusKind(code int) ErrorKind {
	switch code {
	case 401, 403:
		return KindAuth
	case 404:
		return KindNotFound
	case 429:
		return KindRateLimited
	default:
		return KindUnavailable
	}
}
