package api

import (
	"golang.org/x/time/rate"

	"github.com/okian/review360/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithRateLimit bounds the request rate of every business route with a
// token bucket refilled at rps and holding up to burst tokens. A
// non-positive rps leaves the routes unlimited.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxBodyBytes caps the size of JSON request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}
