// Package resilience provides reliability patterns for calls to the LLM
// proxy and the graph search service.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's current position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker guards an external dependency. Consecutive failures open the
// circuit; after the cooldown one probe call is let through, and its
// outcome decides between closing again and re-opening. While a probe
// is in flight every other caller is rejected. A call that settles
// after the state moved on (a slow call from before the trip) does not
// count toward the new state.
type Breaker struct {
	mu          sync.Mutex
	state       State
	gen         uint64 // bumped on every state transition
	failures    int
	opens       int64
	probing     bool
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	now         func() time.Time // for testing
}

// callToken identifies an admitted call: the state generation it was
// admitted under and whether it is the half-open probe.
type callToken struct {
	gen   uint64
	probe bool
}

// NewBreaker creates a circuit breaker that opens after maxFailures
// consecutive failures and stays open for the given cooldown.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open or a half-open probe is
// already in flight; rejected calls get ErrCircuitOpen.
func (b *Breaker) Execute(fn func() error) error {
	tok, ok := b.allow()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn()
	b.settle(tok, err)
	return err
}

// State reports the breaker's current position, accounting for an
// elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Opens returns how many times the circuit has opened.
func (b *Breaker) Opens() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opens
}

func (b *Breaker) allow() (callToken, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return callToken{gen: b.gen}, true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return callToken{}, false
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return callToken{gen: b.gen, probe: true}, true
	case StateHalfOpen:
		if b.probing {
			return callToken{}, false
		}
		b.probing = true
		return callToken{gen: b.gen, probe: true}, true
	}
	return callToken{}, false
}

// settle records a call outcome. An outcome from a call admitted under
// an earlier state generation is discarded: a slow call that started
// before the circuit tripped must not close it or free the probe slot.
func (b *Breaker) settle(tok callToken, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tok.gen != b.gen {
		return
	}
	if tok.probe {
		b.probing = false
	}
	if err != nil {
		b.onFailure()
		return
	}
	b.onSuccess()
}

// transition must be called with b.mu held.
func (b *Breaker) transition(s State) {
	b.state = s
	b.gen++
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.transition(StateOpen)
		b.openedAt = b.now()
		b.opens++
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}
