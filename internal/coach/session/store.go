package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skillup-bharat/server/internal/coach/model"
	errx "github.com/skillup-bharat/server/internal/core/error"
	logx "github.com/skillup-bharat/server/pkg/logger"
)

// ErrNotFound is returned by Get for a session that has no state yet.
var ErrNotFound = errors.New("session not found")

// Store owns per-session state. Updates to one session are serialised;
// different sessions proceed independently.
type Store interface {
	// Update lazily creates a zeroed state for id and runs fn on it under the
	// session's lock. Changes are persisted only when fn returns nil. fn may be
	// invoked more than once and must not keep references to the state.
	Update(ctx context.Context, id string, fn func(*model.SessionState) error) error
	// Get returns a detached copy of the session state.
	Get(ctx context.Context, id string) (*model.SessionState, error)
}

// Sweeper is implemented by stores that evict idle sessions in process.
type Sweeper interface {
	Sweep(idleTTL time.Duration) int
}

func notFound(id string) error {
	return errx.NotFound(fmt.Errorf("%w: %s", ErrNotFound, id), fmt.Sprintf("Session '%s' not found.", id))
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
// It returns immediately when idleTTL or interval is not positive.
func RunJanitor(ctx context.Context, s Sweeper, interval, idleTTL time.Duration) error {
	if idleTTL <= 0 || interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(idleTTL); n > 0 {
				logx.Debug().Int("evicted", n).Dur("idle_ttl", idleTTL).Msg("idle sessions evicted")
			}
		}
	}
}
