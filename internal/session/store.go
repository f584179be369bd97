package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the persistence contract the lifecycle manager and the deferred
// verifier share: a key-ordered map of player key → session with atomic
// per-key operations.
type Store interface {
	// Get returns the session for playerKey, or nil when absent.
	Get(ctx context.Context, playerKey string) (*Session, error)
	// Insert persists a fresh session; ErrSessionExists when the key is held.
	Insert(ctx context.Context, s *Session) error
	// Update runs fn against the current record as a single atomic
	// read-check-write step. fn reports whether the mutated record should be
	// persisted; returning an error aborts without writing.
	// ErrSessionNotFound when the key is absent.
	Update(ctx context.Context, playerKey string, fn func(*Session) (bool, error)) (*Session, error)
	// Keys lists all player keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

const keyPrefix = "chess:session:"

func sessionKey(playerKey string) string { return keyPrefix + strings.TrimSpace(playerKey) }

// RedisStore keeps each session as a JSON blob under chess:session:<player>
// with a rolling TTL, using SETNX for creation and WATCH transactions for
// read-check-write updates.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
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
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func (st *RedisStore) Close() error {
	if st == nil || st.rdb == nil {
		return nil
	}
	return st.rdb.Close()
}

func (st *RedisStore) Get(ctx context.Context, playerKey string) (*Session, error) {
	raw, err := st.rdb.Get(ctx, sessionKey(playerKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (st *RedisStore) Insert(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := st.rdb.SetNX(ctx, sessionKey(s.PlayerKey), raw, st.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (st *RedisStore) Update(ctx context.Context, playerKey string, fn func(*Session) (bool, error)) (*Session, error) {
	key := sessionKey(playerKey)
	var out *Session
	// The scheduling model keeps writers apart; WATCH retries cover the rare
	// overlap between a move and the deferred verifier firing.
	for attempt := 0; attempt < 3; attempt++ {
		err := st.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, key).Bytes()
			if err == redis.Nil {
				return ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			var cur Session
			if jerr := json.Unmarshal(raw, &cur); jerr != nil {
				return jerr
			}
			write, err := fn(&cur)
			if err != nil {
				return err
			}
			out = &cur
			if !write {
				return nil
			}
			newRaw, err := json.Marshal(&cur)
			if err != nil {
				return err
			}
			pipe := tx.TxPipeline()
			pipe.Set(ctx, key, newRaw, st.ttl)
			_, err = pipe.Exec(ctx)
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("session update for %q lost the watch race", playerKey)
}

func (st *RedisStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := st.rdb.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
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
