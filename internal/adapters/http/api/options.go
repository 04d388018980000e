package api

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithThrottle replaces the default throttle guarding the synchronous
// submission routes.
func WithThrottle(t *Throttle) ServerOption {
	return func(s *Server) {
		if t != nil {
			s.throttle = t
		}
	}
}
