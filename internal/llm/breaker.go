package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"mediframework/pkg"
)

// Breaker wraps a client with a circuit breaker so a failing provider
// is shed quickly instead of timing out every caller.  While the
// breaker is open, Available reports false and calls fail with
// ErrServiceUnavailable.  A failed Probe also marks the provider
// unavailable immediately; any later successful call clears the mark.
type Breaker struct {
	inner   Client
	cb      *gobreaker.CircuitBreaker
	healthy atomic.Bool
}

// NewBreaker wraps client.
func NewBreaker(log *logrus.Logger, client Client) *Breaker {
	settings := gobreaker.Settings{
		Name:        "completion-provider",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("completion provider breaker state changed")
		},
	}
	b := &Breaker{inner: client, cb: gobreaker.NewCircuitBreaker(settings)}
	b.healthy.Store(true)
	return b
}

// Available reports whether calls are currently admitted.
func (b *Breaker) Available() bool {
	return b.healthy.Load() && b.cb.State() != gobreaker.StateOpen
}

func (b *Breaker) execute(fn func() (interface{}, error)) (interface{}, error) {
	out, err := b.cb.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, fmt.Errorf("%w: %v", pkg.ErrServiceUnavailable, err)
	}
	if err == nil {
		b.healthy.Store(true)
	}
	return out, err
}

func (b *Breaker) NewSession(ctx context.Context, systemInstruction string, history []Turn) (Session, error) {
	out, err := b.execute(func() (interface{}, error) {
		return b.inner.NewSession(ctx, systemInstruction, history)
	})
	if err != nil {
		return nil, err
	}
	return &breakerSession{inner: out.(Session), b: b}, nil
}

func (b *Breaker) GenerateOnce(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	out, err := b.execute(func() (interface{}, error) {
		return b.inner.GenerateOnce(ctx, prompt, jsonMode)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// Probe verifies the provider end to end.  Unlike regular calls a
// failed probe flips availability at once rather than waiting for the
// breaker to trip.
func (b *Breaker) Probe(ctx context.Context) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Probe(ctx)
	})
	b.healthy.Store(err == nil)
	return err
}

// breakerSession routes each turn through the owning breaker so stream
// failures count against the provider too.
type breakerSession struct {
	inner Session
	b     *Breaker
}

func (s *breakerSession) SendStream(ctx context.Context, parts []Part, onChunk func(Chunk)) error {
	_, err := s.b.execute(func() (interface{}, error) {
		return nil, s.inner.SendStream(ctx, parts, onChunk)
	})
	return err
}
