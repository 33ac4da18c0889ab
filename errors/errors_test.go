package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	assert.Equal(t, "transient", ErrorTransient.String())
	assert.Equal(t, "invalid", ErrorInvalid.String())
	assert.Equal(t, "fatal", ErrorFatal.String())
	assert.Equal(t, "unknown", ErrorClass(99).String())
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrKeyNotFound, "Store", "Get", "lookup")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyNotFound))
	assert.Contains(t, err.Error(), "Store.Get: lookup failed")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "X", "Y", "z"))
	assert.NoError(t, WrapTransient(nil, "X", "Y", "z"))
	assert.NoError(t, WrapInvalid(nil, "X", "Y", "z"))
	assert.NoError(t, WrapFatal(nil, "X", "Y", "z"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"timeout sentinel", ErrRequestTimeout, ErrorTransient},
		{"context deadline", context.DeadlineExceeded, ErrorTransient},
		{"invalid selector", ErrInvalidSelector, ErrorInvalid},
		{"not registered", ErrNotRegistered, ErrorInvalid},
		{"quota", ErrQuotaExceeded, ErrorFatal},
		{"missing config", ErrMissingConfig, ErrorFatal},
		{"message pattern", errors.New("dial tcp: connection refused"), ErrorTransient},
		{"unknown defaults transient", errors.New("surprise"), ErrorTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifiedWrapperOverridesPatterns(t *testing.T) {
	// An explicitly invalid wrap must win over the "timeout" message pattern.
	err := WrapInvalid(errors.New("config timeout field malformed"), "Config", "Load", "parse")
	assert.True(t, IsInvalid(err))
	assert.False(t, IsTransient(err))
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("inner: %w", ErrBadStatus)
	err := WrapTransient(inner, "Chat", "Ask", "request")

	var ce *ClassifiedError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Chat", ce.Component)
	assert.Equal(t, "Ask", ce.Operation)
	assert.True(t, errors.Is(err, ErrBadStatus))
}
