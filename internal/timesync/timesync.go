// Package timesync provides a venue-synchronizable clock used for request signing.
package timesync

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Clock supplies the current time. Signing code never reads the raw wall clock
// directly; it always goes through a Clock so venue/client drift can be corrected.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// ServerTimeSource fetches the venue's authoritative time.
type ServerTimeSource interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Synchronizer maintains a local-to-venue clock offset and serves adjusted time.
type Synchronizer struct {
	mu     sync.RWMutex
	offset time.Duration
	local  func() time.Time
	source ServerTimeSource
}

// NewSynchronizer constructs a synchronizer over the given venue time source.
// A nil local function defaults to time.Now.
func NewSynchronizer(source ServerTimeSource, local func() time.Time) *Synchronizer {
	if local == nil {
		local = time.Now
	}
	return &Synchronizer{
		mu:     sync.RWMutex{},
		offset: 0,
		local:  local,
		source: source,
	}
}

// Now returns the local time adjusted by the last observed venue offset.
func (s *Synchronizer) Now() time.Time {
	s.mu.RLock()
	offset := s.offset
	s.mu.RUnlock()
	return s.local().Add(offset)
}

// Offset returns the current venue-local offset.
func (s *Synchronizer) Offset() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset
}

// Resync fetches the venue time and updates the offset. Called at startup and
// after a timestamp-skew rejection, before the single signed-request retry.
func (s *Synchronizer) Resync(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("timesync: no server time source configured")
	}
	before := s.local()
	venueTime, err := s.source.ServerTime(ctx)
	if err != nil {
		return fmt.Errorf("fetch server time: %w", err)
	}
	after := s.local()
	// Midpoint of the round trip approximates the local instant the venue stamped.
	midpoint := before.Add(after.Sub(before) / 2)

	s.mu.Lock()
	s.offset = venueTime.Sub(midpoint)
	s.mu.Unlock()
	return nil
}
