package errors

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// safeDetailPrefix tags reportable detail payloads so the response builder
// can pick them out of the safe-detail stack without touching other entries.
const safeDetailPrefix = "__json__:"

// ErrorBuilder chains context onto an error before tying it to one of the
// package sentinels. The builder is not itself an error; Mark finishes the
// chain and returns the built error.
type ErrorBuilder struct {
	err error
}

// NewError starts a chain from a fresh message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a chain wrapping an existing error.
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithHint attaches a message that is safe to show to API callers. The
// first hint on the chain becomes the response display message.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf is WithHint with formatting.
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured fields that surface in the
// error response body. Details that fail to marshal are dropped silently.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	marshaled, err := json.Marshal(details)
	if err != nil {
		return b
	}
	b.err = errors.WithSafeDetails(b.err, safeDetailPrefix+"%s", errors.Safe(string(marshaled)))
	return b
}

// Mark ties the chain to a sentinel, ending the chain.
func (b *ErrorBuilder) Mark(sentinel error) error {
	b.err = errors.Mark(b.err, sentinel)
	return b.err
}
