package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs   int // Base delay in milliseconds
	RandomDelayMs int // Random delay range in milliseconds
}

// TimingDelay pads security-sensitive operations to a uniform duration so a
// caller cannot tell a wrong code from an expired or already-used one by
// measuring the response time. The delay applies to every outcome, success
// included.
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
	}
}

// cryptoRandIntn returns a secure random number between 0 and max (exclusive)
func cryptoRandIntn(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return 0, err
	}

	randomValue := binary.BigEndian.Uint64(randomBytes)
	return int(randomValue % uint64(max)), nil
}

func (td *TimingDelay) targetDelay() time.Duration {
	baseDelay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	var randomDelay time.Duration
	if td.config.RandomDelayMs > 0 {
		randomValue, err := cryptoRandIntn(td.config.RandomDelayMs)
		if err == nil {
			randomDelay = time.Duration(randomValue) * time.Millisecond
		}
	}
	return baseDelay + randomDelay
}

// Wait sleeps for the full base + random delay.
func (td *TimingDelay) Wait() {
	time.Sleep(td.targetDelay())
}

// WaitFrom sleeps only for the remainder of the target delay, counting time
// already spent since startTime against it.
func (td *TimingDelay) WaitFrom(startTime time.Time) {
	elapsed := time.Since(startTime)
	if target := td.targetDelay(); elapsed < target {
		time.Sleep(target - elapsed)
	}
}
