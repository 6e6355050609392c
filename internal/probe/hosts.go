package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// hostLimiter hands out one token bucket per origin host.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newHostLimiter(perSecond float64, burst int) *hostLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

// wait blocks until host may send another request. A nil limiter never waits.
func (l *hostLimiter) wait(ctx context.Context, host string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[host] = lim
	}
	l.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", host, ErrRateLimited, err)
	}
	return nil
}

// breakerSet keeps one circuit breaker per origin host so a dead mirror
// stops costing a full timeout per URL.
type breakerSet[T any] struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[T]
	failures uint32
	cooldown time.Duration
	log      *zap.Logger
}

func newBreakerSet[T any](log *zap.Logger, failures uint32, cooldown time.Duration) *breakerSet[T] {
	if failures == 0 {
		return nil
	}
	return &breakerSet[T]{
		breakers: make(map[string]*gobreaker.CircuitBreaker[T]),
		failures: failures,
		cooldown: cooldown,
		log:      log,
	}
}

func (s *breakerSet[T]) get(host string) *gobreaker.CircuitBreaker[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := s.breakers[host]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     s.cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Info("breaker state change",
				zap.String("host", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			BreakerTransitions.WithLabelValues(to.String()).Inc()
		},
	})
	s.breakers[host] = cb
	return cb
}

// execute runs fn through host's breaker. A nil set runs fn directly.
func (s *breakerSet[T]) execute(host string, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}
	v, err := s.get(host).Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return v, fmt.Errorf("%s: %w", host, ErrBreakerOpen)
	}
	return v, err
}
