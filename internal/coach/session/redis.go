package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillup-bharat/server/internal/coach/model"
	errx "github.com/skillup-bharat/server/internal/core/error"
	logx "github.com/skillup-bharat/server/pkg/logger"
)

const maxTxRetries = 8

// ErrConflict is returned when an update kept losing optimistic transactions.
var ErrConflict = errors.New("session update conflict")

// localError marks failures that did not come from Redis (the update
// function, JSON encoding) so they are returned unmapped.
type localError struct{ err error }

func (e localError) Error() string { return e.err.Error() }
func (e localError) Unwrap() error { return e.err }

// RedisStore keeps session state as JSON with a sliding TTL. Per-session
// serialisation relies on WATCH/MULTI optimistic transactions.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisStore) stateKey(id string) string {
	return fmt.Sprintf("session:%s:state", id)
}

func (r *RedisStore) Update(ctx context.Context, id string, fn func(*model.SessionState) error) error {
	key := r.stateKey(id)

	txf := func(tx *redis.Tx) error {
		state, err := r.load(ctx, tx, id, key)
		if errors.Is(err, redis.Nil) {
			state = model.NewSessionState(id, r.now())
		} else if err != nil {
			return err
		}

		if err := fn(state); err != nil {
			return localError{err: err}
		}

		b, err := json.Marshal(state)
		if err != nil {
			return localError{err: fmt.Errorf("marshal session state: %w", err)}
		}

		// extend TTL on touch
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logx.Debug().Str("key", key).Int("attempt", i+1).Msg("session update lost optimistic lock; retrying")
			continue
		}

		var lErr localError
		if errors.As(err, &lErr) {
			return lErr.err
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to update session state in redis")
		return errx.WrapRedis(err)
	}

	logx.Warn().Str("key", key).Int("attempts", maxTxRetries).Msg("session update gave up after conflicts")
	return errx.New(ErrConflict, http.StatusConflict, "session is busy, please retry")
}

func (r *RedisStore) Get(ctx context.Context, id string) (*model.SessionState, error) {
	state, err := r.load(ctx, r.rdb, id, r.stateKey(id))
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		var lErr localError
		if errors.As(err, &lErr) {
			return nil, lErr.err
		}
		logx.Error().Err(err).Str("session_id", id).Msg("failed to load session state from redis")
		return nil, errx.WrapRedis(err)
	}
	return state, nil
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) load(ctx context.Context, c getter, id, key string) (*model.SessionState, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var state model.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		logx.Error().Err(err).Str("session_id", id).Msg("failed to unmarshal session state")
		return nil, localError{err: fmt.Errorf("unmarshal session state: %w", err)}
	}
	if state.Badges == nil {
		state.Badges = []string{}
	}
	return &state, nil
}

var _ Store = (*RedisStore)(nil)
