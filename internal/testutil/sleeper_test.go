package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordingSleeper_RecordsCalls(t *testing.T) {
	s := NewRecordingSleeper()
	ctx := context.Background()

	assert.NoError(t, s.Sleep(ctx, 10*time.Millisecond))
	assert.NoError(t, s.Sleep(ctx, 5*time.Millisecond))

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 5 * time.Millisecond}, s.Calls())
	assert.Equal(t, 15*time.Millisecond, s.Total())

	s.Reset()
	assert.Empty(t, s.Calls())
}

func TestRecordingSleeper_CanceledContext(t *testing.T) {
	s := NewRecordingSleeper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Sleep(ctx, time.Second), context.Canceled)
	assert.Len(t, s.Calls(), 1)
}
