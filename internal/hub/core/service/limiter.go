package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// locationLimiter keeps one token bucket per driver.
type locationLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	drivers map[string]*rate.Limiter
}

func newLocationLimiter(interval time.Duration, burst int) *locationLimiter {
	if interval <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &locationLimiter{
		every:   rate.Every(interval),
		burst:   burst,
		drivers: make(map[string]*rate.Limiter),
	}
}

// allow reports whether driverID may record a location at now. A nil
// limiter allows everything.
func (l *locationLimiter) allow(driverID string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.drivers[driverID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.drivers[driverID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}
