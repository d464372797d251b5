package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter tracks per-client request rates and upload volume. Comparison
// runs are expensive, so the limits are deliberately coarse: requests per
// minute plus an optional daily request and data budget.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64

	clients map[string]*clientUsage
}

type clientUsage struct {
	lastMinute int
	lastHour   int
	today      int
	dataToday  int64

	lastRequest time.Time
	dayStart    time.Time
}

// NewRateLimiter creates a rate limiter; zero-valued limits are disabled.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		clients:           make(map[string]*clientUsage),
	}
}

// Check reports whether a request of dataSize bytes from clientID is allowed
// and, if so, records it.
func (rl *RateLimiter) Check(clientID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	usage, ok := rl.clients[clientID]
	if !ok {
		usage = &clientUsage{lastRequest: now, dayStart: now}
		rl.clients[clientID] = usage
	}

	if now.YearDay() != usage.dayStart.YearDay() || now.Year() != usage.dayStart.Year() {
		usage.today = 0
		usage.dataToday = 0
		usage.dayStart = now
	}
	if now.Sub(usage.lastRequest) >= time.Minute {
		usage.lastMinute = 0
	}
	if now.Sub(usage.lastRequest) >= time.Hour {
		usage.lastHour = 0
	}

	if rl.requestsPerMinute > 0 && usage.lastMinute >= rl.requestsPerMinute {
		return &RateLimitError{Type: "minute", Limit: rl.requestsPerMinute, RetryAfter: time.Minute - now.Sub(usage.lastRequest)}
	}
	if rl.requestsPerHour > 0 && usage.lastHour >= rl.requestsPerHour {
		return &RateLimitError{Type: "hour", Limit: rl.requestsPerHour, RetryAfter: time.Hour - now.Sub(usage.lastRequest)}
	}
	if rl.maxRequestsPerDay > 0 && usage.today >= rl.maxRequestsPerDay {
		return &RateLimitError{Type: "day", Limit: rl.maxRequestsPerDay, RetryAfter: untilMidnight(now)}
	}
	if rl.maxDataPerDay > 0 && usage.dataToday+dataSize > rl.maxDataPerDay {
		return &RateLimitError{Type: "data", Limit: int(rl.maxDataPerDay), RetryAfter: untilMidnight(now)}
	}

	usage.lastMinute++
	usage.lastHour++
	usage.today++
	usage.dataToday += dataSize
	usage.lastRequest = now
	return nil
}

func untilMidnight(now time.Time) time.Duration {
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return midnight.Sub(now)
}

// RateLimitError reports which limit a rejected request hit.
type RateLimitError struct {
	Type       string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}
