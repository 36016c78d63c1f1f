package random

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeededIsDeterministic(t *testing.T) {
	a, b := NewSeeded(42), NewSeeded(42)
	pa, pb := make([]byte, 16), make([]byte, 16)
	_, err := a.Read(pa)
	require.NoError(t, err)
	_, err = b.Read(pb)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Equal(t, a.Float64(), b.Float64())
}

func TestCryptoSourceFloatRange(t *testing.T) {
	s := NewCryptoSource()
	for i := 0; i < 100; i++ {
		f := s.Float64()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Sleep(ctx, SystemClock(), time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepFrozenClockReturnsImmediately(t *testing.T) {
	err := Sleep(context.Background(), FrozenClock{At: time.Unix(0, 0)}, time.Hour)
	assert.NoError(t, err)
}
