// Package config loads coordinator.toml tunables, falling back to
// compiled-in defaults for anything missing or absent. Configuration is
// a tuning knob, not the persisted-state store — an absent file is not
// an error.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the coordinator's tunables, read by its components at
// construction time. DefaultDelay and ExecTimeout are loaded and validated
// but no component reads them: the Sender uses sender.DefaultDelay, and
// the tmux and git wrappers use their own fixed timeouts.
type Config struct {
	TickInterval           Duration `toml:"tick_interval"`
	MessageQueueCap        int      `toml:"message_queue_cap"`
	MaxMessageAge          Duration `toml:"max_message_age"`
	MaxConcurrentSessions  int      `toml:"max_concurrent_sessions"`
	SenderQueueCap         int      `toml:"queue_cap"`
	DefaultDelay           Duration `toml:"default_delay"`
	BreakerFailureThresh   int      `toml:"breaker_failure_threshold"`
	BreakerSuccessThresh   int      `toml:"breaker_success_threshold"`
	BreakerTimeout         Duration `toml:"breaker_timeout"`
	BreakerHalfOpenProbes  int      `toml:"breaker_half_open_max_calls"`
	ExecTimeout            Duration `toml:"exec_timeout"`
	StaleEvictionTicks     int      `toml:"stale_eviction_ticks"`
}

// Duration wraps time.Duration so BurntSushi/toml can decode a plain
// string like "5s" directly, the same pattern the teacher's formula
// configs use for human-readable durations.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the time.Duration value.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Defaults returns the compiled-in configuration, matching the numeric
// defaults named throughout the system design (5s reconciliation tick,
// 100-message queues, 10 concurrent sender workers, a 1000-request sender
// queue, a 10s default delay, and the circuit breaker's 5/3/60s/3
// failure/success/timeout/half-open thresholds).
func Defaults() Config {
	return Config{
		TickInterval:          Duration(5 * time.Second),
		MessageQueueCap:       100,
		MaxMessageAge:         Duration(24 * time.Hour),
		MaxConcurrentSessions: 10,
		SenderQueueCap:        1000,
		DefaultDelay:          Duration(10 * time.Second),
		BreakerFailureThresh:  5,
		BreakerSuccessThresh:  3,
		BreakerTimeout:        Duration(60 * time.Second),
		BreakerHalfOpenProbes: 3,
		ExecTimeout:           Duration(10 * time.Second),
		StaleEvictionTicks:    2,
	}
}

// Load reads path (a coordinator.toml file) over top of Defaults(). A
// missing file is not an error — it simply yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}
