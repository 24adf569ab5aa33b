package weather

import (
	"context"
	"errors"
)

var (
	ErrLocationNotFound = errors.New("location not found")
	ErrNetwork          = errors.New("network error")
	ErrAuth             = errors.New("auth error")
	ErrParse            = errors.New("parse error")
	ErrTimeout          = errors.New("timeout")
)

// ErrorKind maps a provider error onto a short label used in logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrLocationNotFound):
		return "location_not_found"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "unknown"
	}
}
