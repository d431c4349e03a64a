package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func recordingDelay(config TimingConfig) (*TimingDelay, *[]time.Duration) {
	var slept []time.Duration
	td := NewTimingDelay(config)
	td.sleep = func(d time.Duration) { slept = append(slept, d) }
	return td, &slept
}

func TestTimingDelay_Wait_OnFailure(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})

	td.Wait(false)

	if assert.Len(t, *slept, 1) {
		assert.GreaterOrEqual(t, (*slept)[0], 100*time.Millisecond)
		assert.Less(t, (*slept)[0], 150*time.Millisecond)
	}
}

func TestTimingDelay_Wait_OnSuccess_NoDelay(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100, RandomDelayMs: 50})

	td.Wait(true)

	assert.Empty(t, *slept)
}

func TestTimingDelay_Wait_OnSuccess_WithDelay(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100, DelayOnSuccess: true})

	td.Wait(true)

	assert.Equal(t, []time.Duration{100 * time.Millisecond}, *slept)
}

func TestTimingDelay_WaitFrom_AdjustsForElapsedTime(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 100})

	td.WaitFrom(time.Now().Add(-40*time.Millisecond), false)

	if assert.Len(t, *slept, 1) {
		assert.LessOrEqual(t, (*slept)[0], 60*time.Millisecond)
		assert.Greater(t, (*slept)[0], 0*time.Millisecond)
	}
}

func TestTimingDelay_WaitFrom_NoWaitIfAlreadyExceeded(t *testing.T) {
	td, slept := recordingDelay(TimingConfig{BaseDelayMs: 50})

	td.WaitFrom(time.Now().Add(-time.Second), false)

	assert.Empty(t, *slept)
}
