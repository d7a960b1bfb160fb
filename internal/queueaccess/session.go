package queueaccess

import (
	"fmt"

	"reel/internal/config"
	"reel/internal/queue"
)

// Session represents a queue access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open opens the queue database described by cfg for direct access. The CLI
// shares the database with a running daemon; SQLite's WAL mode plus the
// store's busy retries make that safe.
func Open(cfg *config.Config) (Session, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{
		Access: NewStoreAccess(store),
		close:  store.Close,
	}, nil
}
