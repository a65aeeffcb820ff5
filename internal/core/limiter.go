package core

// limiter.go caps how many pricing calls are outstanding at once across all
// sessions. Calls that cannot get a slot within maxWait fail with
// ErrTooManyRequests. WaitForDrain lets shutdown wait for running calls.

import (
	"context"
	"sync"
	"time"
)

// Limiter defaults.
const (
	DefaultMaxConcurrentCalls = 10
	DefaultMaxWaitTime        = 30 * time.Second
)

// CallLimiter is a semaphore around the pricing service.
type CallLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewCallLimiter creates a limiter allowing maxConcurrent simultaneous calls.
func NewCallLimiter(maxConcurrent int, maxWait time.Duration) *CallLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCalls
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &CallLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire waits for a slot. The caller must Release after a nil return.
func (l *CallLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRequests
	}
}

// Release frees a slot taken by Acquire.
func (l *CallLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of running calls.
func (l *CallLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *CallLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until no call is running or ctx is done.
func (l *CallLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot for the health endpoint.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *CallLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: cap(l.semaphore),
	}
}
