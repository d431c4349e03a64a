package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig holds the failed-login delay settings
type TimingConfig struct {
	BaseDelayMs    int
	RandomDelayMs  int
	DelayOnSuccess bool
}

// TimingDelay pads login attempts so that an unknown account, a wrong password
// and a banned account all take roughly the same time to answer.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config, sleep: time.Sleep}
}

// target returns the padded duration, or zero when no delay applies
func (td *TimingDelay) target(success bool) time.Duration {
	if success && !td.config.DelayOnSuccess {
		return 0
	}

	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelayMs))); err == nil {
			delay += time.Duration(n.Int64()) * time.Millisecond
		}
	}
	return delay
}

// Wait sleeps for the full padded duration
func (td *TimingDelay) Wait(success bool) {
	if d := td.target(success); d > 0 {
		td.sleep(d)
	}
}

// WaitFrom sleeps until the padded duration has elapsed since start
func (td *TimingDelay) WaitFrom(start time.Time, success bool) {
	if remaining := td.target(success) - time.Since(start); remaining > 0 {
		td.sleep(remaining)
	}
}
