// Package resilience provides the circuit breaker guarding the primary
// recognition backend.
//
// The breaker is the classic three-state machine (closed → open →
// half-open). While open, the pipeline skips the primary backend entirely
// and sends chunks straight to the fallback; after the reset timeout a
// limited number of probe calls test whether the primary recovered.
//
// The breaker exposes Allow/Record rather than wrapping the call, because
// the pipeline owns the call itself: it needs the transcription result and
// the per-chunk context either way.
package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// State represents the current operating mode of a [Breaker].
type State int

const (
	// StateClosed is the normal operating state — all calls are allowed.
	StateClosed State = iota

	// StateOpen indicates the breaker has tripped due to consecutive
	// failures. Calls are refused until the reset timeout elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the reset timeout. A
	// limited number of calls are allowed through; if they succeed the
	// breaker closes, otherwise it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds tuning knobs for a [Breaker].
type Config struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures in the closed
	// state before the breaker opens. Default: 5.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before transitioning
	// to half-open. Default: 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of probe calls allowed in the half-open
	// state. Default: 3.
	HalfOpenMax int
}

// Breaker implements the three-state circuit breaker pattern with explicit
// admission control. Call [Breaker.Allow] before the guarded operation and
// [Breaker.Record] with its outcome. Safe for concurrent use.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu              sync.Mutex
	state           State
	consecutiveFail int
	lastFailure     time.Time
	halfOpenCalls   int
	halfOpenOK      int
}

// New creates a [Breaker] with the supplied configuration. Zero-value
// config fields are replaced with defaults.
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &Breaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Allow reports whether the guarded operation may run now. A true result in
// the half-open state consumes one probe slot; the caller must follow up
// with [Breaker.Record].
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) < b.resetTimeout {
			return false
		}
		b.state = StateHalfOpen
		b.halfOpenCalls = 0
		b.halfOpenOK = 0
		slog.Info("circuit breaker transitioning to half-open", "name", b.name)
		fallthrough
	case StateHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMax {
			return false
		}
		b.halfOpenCalls++
		return true
	default:
		return true
	}
}

// Record feeds the outcome of an allowed operation back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.lastFailure = time.Now()
		if b.state == StateHalfOpen {
			// Any failure during probing re-opens immediately.
			b.state = StateOpen
			b.consecutiveFail = b.maxFailures
			slog.Warn("circuit breaker re-opened from half-open", "name", b.name)
			return
		}
		b.consecutiveFail++
		if b.consecutiveFail >= b.maxFailures {
			b.state = StateOpen
			slog.Warn("circuit breaker opened",
				"name", b.name,
				"consecutive_failures", b.consecutiveFail)
		}
		return
	}

	if b.state == StateHalfOpen {
		b.halfOpenOK++
		if b.halfOpenOK >= b.halfOpenMax {
			b.state = StateClosed
			b.consecutiveFail = 0
			slog.Info("circuit breaker closed after successful probes", "name", b.name)
		}
		return
	}
	b.consecutiveFail = 0
}

// State returns the current [State] of the breaker. If the breaker is open
// and the reset timeout has elapsed, the returned state is [StateHalfOpen]
// (the actual transition happens on the next [Breaker.Allow] call).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastFailure) >= b.resetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Reset manually forces the breaker back to [StateClosed], clearing all
// failure counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutiveFail = 0
	b.halfOpenCalls = 0
	b.halfOpenOK = 0
}
