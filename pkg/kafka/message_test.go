package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_FillsDefaults(t *testing.T) {
	msg, err := NewMessage().
		WithKey("app-1").
		WithEventType("application.reserved").
		WithSource("reservations").
		WithValue(map[string]string{"reference": "abc"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "app-1", msg.Key)
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "application.reserved", msg.GetEventType())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	var body map[string]string
	require.NoError(t, msg.DecodeValue(&body))
	assert.Equal(t, "abc", body["reference"])
}

func TestMessageBuilder_UnencodableValueFailsBuild(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestRetryCount_PastNine(t *testing.T) {
	msg, err := NewMessage().WithKey("k").Build()
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("mongo unavailable", errors.New("connection refused"))
	permanent := NewPermanentError("bad payload", nil)

	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(permanent, 0, 3))
	assert.True(t, ShouldRetry(fmt.Errorf("wrapped: %w", context.DeadlineExceeded), 0, 3))
	assert.False(t, ShouldRetry(errors.New("something odd"), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}

func TestClassifyError_Patterns(t *testing.T) {
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: I/O Timeout")))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("schema mismatch on field x")))
	assert.Equal(t, ErrorTypeUnknown, ClassifyError(nil))
	assert.Equal(t, ErrorTypeBusiness, ClassifyError(fmt.Errorf("wrapped: %w", NewBusinessError("visit gone", nil))))
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "transient", ErrorTypeTransient.String())
	assert.Equal(t, "business", ErrorTypeBusiness.String())
	assert.Equal(t, "unknown", ErrorType(42).String())
}
