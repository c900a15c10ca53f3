package services

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxPhoneRequests int           // Max OTP requests per phone
	PhoneWindow      time.Duration // Time window for phone rate limit
	MaxIPRequests    int           // Max OTP requests per IP
	IPWindow         time.Duration // Time window for IP rate limit
	MaxAPIRequests   int           // Max API requests per IP
	APIWindow        time.Duration // Time window for the API rate limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPhoneRequests: 3,
		PhoneWindow:      10 * time.Minute,
		MaxIPRequests:    10,
		IPWindow:         1 * time.Hour,
		MaxAPIRequests:   100,
		APIWindow:        1 * time.Minute,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "phone", "ip" or "api"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// limiterEntry is a token bucket plus the last time it was used
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore holds one token bucket per key
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	window   time.Duration
}

func newLimiterStore(requests int, window time.Duration) *limiterStore {
	if requests <= 0 {
		requests = 1
	}
	return &limiterStore{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		window:   window,
	}
}

// reserve takes a token for key. When none is available it returns the time
// the next token becomes available and takes nothing.
func (s *limiterStore) reserve(key string, now time.Time) (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[key] = entry
	}
	entry.lastSeen = now

	r := entry.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, now.Add(s.window)
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, now.Add(delay)
	}
	return true, time.Time{}
}

// cleanup drops buckets unused for longer than the window; they are full again by then
func (s *limiterStore) cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > s.window {
			delete(s.limiters, key)
			removed++
		}
	}
	return removed
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimitService throttles OTP sends per phone number and per client IP,
// and general API traffic per client IP, using in-memory token buckets
type RateLimitService struct {
	phone *limiterStore
	ip    *limiterStore
	api   *limiterStore
	now   func() time.Time
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		phone: newLimiterStore(config.MaxPhoneRequests, config.PhoneWindow),
		ip:    newLimiterStore(config.MaxIPRequests, config.IPWindow),
		api:   newLimiterStore(config.MaxAPIRequests, config.APIWindow),
		now:   time.Now,
	}
}

// CheckOTPRateLimit consumes one OTP request for the phone number and IP, or
// returns a *RateLimitError if either is exhausted
func (s *RateLimitService) CheckOTPRateLimit(phone, ip string) error {
	now := s.now()

	if phone != "" {
		if ok, retryAfter := s.phone.reserve(phone, now); !ok {
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many OTP requests for this phone number. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "phone",
			}
		}
	}

	if ip != "" {
		if ok, retryAfter := s.ip.reserve(ip, now); !ok {
			return &RateLimitError{
				Message:    fmt.Sprintf("Too many OTP requests from this IP address. Please try again after %s", retryAfter.Format("15:04:05")),
				RetryAfter: retryAfter,
				Type:       "ip",
			}
		}
	}

	return nil
}

// AllowRequest consumes one general API request for the IP
func (s *RateLimitService) AllowRequest(ip string) error {
	now := s.now()
	if ok, retryAfter := s.api.reserve(ip, now); !ok {
		return &RateLimitError{
			Message:    "Rate limit exceeded. Try again later.",
			RetryAfter: retryAfter,
			Type:       "api",
		}
	}
	return nil
}

// CleanupExpiredRateLimits drops idle buckets and returns how many were removed
func (s *RateLimitService) CleanupExpiredRateLimits() int {
	now := s.now()
	return s.phone.cleanup(now) + s.ip.cleanup(now) + s.api.cleanup(now)
}

// TrackedKeys returns the number of phone numbers and IPs currently tracked
func (s *RateLimitService) TrackedKeys() int {
	return s.phone.size() + s.ip.size() + s.api.size()
}
