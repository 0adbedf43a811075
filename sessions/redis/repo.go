package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-tenant-gateway/internal/errors"
	"github.com/jrsteele09/go-tenant-gateway/sessions"
	rdb "github.com/redis/go-redis/v9"
)

var _ sessions.Repo = (*Repo)(nil)

const keyPrefix = "gw:session:"

// Repo stores each session as a redis hash holding the persisted session keys.
type Repo struct {
	c rdb.UniversalClient
}

func New(addr string, db int) *Repo {
	return &Repo{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db})}
}

// NewWithClient wraps an existing client.
func NewWithClient(c rdb.UniversalClient) *Repo {
	return &Repo{c: c}
}

// Key is the redis key of a session.
func Key(origin, sessionID string) string {
	return keyPrefix + sessions.ScopeKey(origin, sessionID)
}

// Put replaces the hash in one transaction so fields of an older session cannot survive.
func (r *Repo) Put(ctx context.Context, origin, sessionID string, c sessions.Credentials, ttl time.Duration) error {
	key := Key(origin, sessionID)
	fields := c.Fields()
	values := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	_, err := r.c.TxPipelined(ctx, func(pipe rdb.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[redis Put] %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, origin, sessionID string) (sessions.Credentials, error) {
	fields, err := r.c.HGetAll(ctx, Key(origin, sessionID)).Result()
	if err != nil {
		return sessions.Credentials{}, fmt.Errorf("[redis Get] %w", err)
	}
	if len(fields) == 0 {
		return sessions.Credentials{}, errors.ErrSessionNotFound
	}
	c, err := sessions.FromFields(fields)
	if err != nil {
		return sessions.Credentials{}, fmt.Errorf("[redis Get] %w", err)
	}
	return *c, nil
}

func (r *Repo) Delete(ctx context.Context, origin, sessionID string) error {
	if err := r.c.Del(ctx, Key(origin, sessionID)).Err(); err != nil {
		return fmt.Errorf("[redis Delete] %w", err)
	}
	return nil
}

func (r *Repo) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *Repo) Close() error {
	return r.c.Close()
}
