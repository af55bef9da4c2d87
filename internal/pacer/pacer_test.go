package pacer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_FirstWaitImmediate(t *testing.T) {
	p := New(time.Second)

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_EnforcesInterval(t *testing.T) {
	interval := 50 * time.Millisecond
	p := New(interval)

	require.NoError(t, p.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), interval-5*time.Millisecond)
}

func TestPacer_ContextCancel(t *testing.T) {
	p := New(time.Minute)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Wait(ctx)
	require.Error(t, err)
}

func TestPacer_DefaultsNonPositiveInterval(t *testing.T) {
	p := New(0)
	assert.Equal(t, time.Second, p.Interval())
}

func TestPacer_JitterBounded(t *testing.T) {
	interval := 20 * time.Millisecond
	p := New(interval, WithJitter(0.5))

	require.NoError(t, p.Wait(context.Background()))
	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, interval-5*time.Millisecond)
	assert.Less(t, elapsed, 10*interval)
}
