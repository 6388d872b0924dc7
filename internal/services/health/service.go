package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service reports whether the record store is reachable.
type Service struct {
	Store   Pinger
	Timeout time.Duration
}

// NewService constructs a health service. store may be nil for the in-memory
// record store.
func NewService(store Pinger) *Service {
	return &Service{Store: store, Timeout: 2 * time.Second}
}

// Status returns the health payload and whether every check passed.
func (s *Service) Status(ctx context.Context) (map[string]bool, bool) {
	if s == nil || s.Store == nil {
		return map[string]bool{"ok": true}, true
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := s.Store.PingContext(ctx); err != nil {
		return map[string]bool{"ok": false, "store": false}, false
	}
	return map[string]bool{"ok": true, "store": true}, true
}
