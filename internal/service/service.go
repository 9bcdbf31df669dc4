// Package service holds one typed wrapper per API resource. Each method makes
// exactly one request and returns normalized model values; nothing is cached
// or retried.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/Semkufu95/confessions/internal/normalize"
)

// API is the subset of client.Client the services need.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

var ErrValidation = errors.New("validation failed")

// ValidationError is returned before any request is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func pathID(id string) string {
	return url.PathEscape(id)
}

func records(v any) []normalize.Record {
	items, _ := v.([]any)
	out := make([]normalize.Record, 0, len(items))
	for _, item := range items {
		if r := normalize.AsRecord(item); r != nil {
			out = append(out, r)
		}
	}
	return out
}
