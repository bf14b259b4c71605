package duel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/obslog"
)

const (
	ttlRoom = 6 * time.Hour

	// casAttempts bounds retries when the WATCH transaction loses a race.
	casAttempts = 8
)

// Store is the shared session store: one JSON document per room with
// conditional writes and push-based change notification. Last write wins per
// document; one-time transitions are protected by the precondition evaluated
// inside UpdateRoom's WATCH transaction.
type Store struct {
	rdb *redis.Client
}

// NewStore connects to Redis by URL and verifies connectivity.
func NewStore(redisURL string) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// NewStoreWithClient wraps an existing client. Used by tests and by callers
// that share one connection pool.
func NewStoreWithClient(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func roomKey(code string) string     { return "duel:room:" + strings.TrimSpace(code) }
func roomChannel(code string) string { return "duel:events:" + strings.TrimSpace(code) }

// CreateRoom writes a new room document only if the code is unclaimed.
// Returns false when the code is already taken.
func (s *Store) CreateRoom(ctx context.Context, room *Room) (bool, error) {
	if room == nil || strings.TrimSpace(room.Code) == "" {
		return false, ErrInvalidArgs
	}
	raw, err := json.Marshal(room)
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, roomKey(room.Code), raw, ttlRoom).Result()
	if err != nil {
		return false, fmt.Errorf("store unavailable: %w", err)
	}
	if ok {
		s.publish(ctx, room.Code, raw)
	}
	return ok, nil
}

// GetRoom returns the room document, or nil when absent.
func (s *Store) GetRoom(ctx context.Context, code string) (*Room, error) {
	raw, err := s.rdb.Get(ctx, roomKey(code)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store unavailable: %w", err)
	}
	var room Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateRoom performs a compare-and-swap write. apply receives the freshly
// read document and must re-check its precondition there: returning false
// writes nothing and is not an error, because multiple uncoordinated clients
// may legally attempt the same transition. A concurrent write during the
// transaction restarts the read-check-write cycle.
func (s *Store) UpdateRoom(ctx context.Context, code string, apply func(*Room) (bool, error)) (bool, *Room, error) {
	key := roomKey(code)

	var (
		applied bool
		result  *Room
	)
	for attempt := 0; attempt < casAttempts; attempt++ {
		applied = false
		result = nil
		err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			var cur Room
			if jerr := json.Unmarshal(raw, &cur); jerr != nil {
				return jerr
			}
			ok, aerr := apply(&cur)
			if aerr != nil {
				return aerr
			}
			result = &cur
			if !ok {
				// Precondition no longer holds: swallow as a no-op.
				return nil
			}
			newRaw, jerr := json.Marshal(&cur)
			if jerr != nil {
				return jerr
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, key, newRaw, ttlRoom)
			pipe.Publish(ctx, roomChannel(code), newRaw)
			if _, perr := pipe.Exec(ctx); perr != nil {
				return perr
			}
			applied = true
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue // lost the race, re-read and retry
		}
		if err != nil {
			return false, nil, err
		}
		return applied, result, nil
	}
	return false, result, fmt.Errorf("room %s: update contention not resolved after %d attempts", code, casAttempts)
}

// DeleteRoom removes the document and publishes a tombstone so subscribers
// observe the disposal.
func (s *Store) DeleteRoom(ctx context.Context, code string) error {
	if err := s.rdb.Del(ctx, roomKey(code)).Err(); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	s.publish(ctx, code, []byte("null"))
	return nil
}

func (s *Store) publish(ctx context.Context, code string, raw []byte) {
	if err := s.rdb.Publish(ctx, roomChannel(code), raw).Err(); err != nil {
		obslog.L().Warn("room_publish_error", zap.String("code", code), zap.Error(err))
	}
}

// Subscribe delivers every published room snapshot to onChange in arrival
// order; a nil room signals deletion. The returned function stops delivery.
func (s *Store) Subscribe(ctx context.Context, code string, onChange func(*Room)) (func(), error) {
	sub := s.rdb.Subscribe(ctx, roomChannel(code))
	// Force the subscription to be established before returning so callers
	// do not miss writes issued right after Subscribe.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("store unavailable: %w", err)
	}
	ch := sub.Channel()
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var room *Room
				if err := json.Unmarshal([]byte(msg.Payload), &room); err != nil {
					obslog.L().Warn("room_event_decode_error", zap.String("code", code), zap.Error(err))
					continue
				}
				onChange(room)
			}
		}
	}()
	stop := func() {
		close(done)
		_ = sub.Close()
	}
	return stop, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
