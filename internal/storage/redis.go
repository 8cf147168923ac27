package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stolasapp/todotoday/internal/config"
	"github.com/stolasapp/todotoday/internal/storage/db"
)

// RedisSessions is a [Sessions] implementation backed by Redis. Each session
// is a hash that Redis expires on its own; its flash lives in a sibling key
// so it can be consumed with a single GETDEL.
type RedisSessions struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisSessions connects to the Redis server described by cfg.
func NewRedisSessions(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RedisSessions, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.DebugContext(ctx, "redis session store connected",
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
	)
	return &RedisSessions{
		rdb:    rdb,
		prefix: cfg.KeyPrefix,
		now:    time.Now,
	}, nil
}

// Close releases the Redis connection pool.
func (r *RedisSessions) Close() error {
	return r.rdb.Close()
}

type redisSession struct {
	User   uint64 `redis:"user"`
	Expire int64  `redis:"expire"`
}

// CreateSession satisfies the [Sessions] interface.
func (r *RedisSessions) CreateSession(ctx context.Context, session db.Session) error {
	key := r.sessionKey(session.Token)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user", session.User,
			"expire", session.ExpireTime.UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, session.ExpireTime)
		if !session.Flash.Empty() {
			pipe.Set(ctx, r.flashKey(session.Token), encodeFlash(session.Flash), 0)
			pipe.PExpireAt(ctx, r.flashKey(session.Token), session.ExpireTime)
		}
		return nil
	})
	return err
}

// GetSession satisfies the [Sessions] interface. The flash is not loaded;
// use [RedisSessions.TakeFlash] to consume it.
func (r *RedisSessions) GetSession(ctx context.Context, token string) (db.Session, error) {
	cmd := r.rdb.HGetAll(ctx, r.sessionKey(token))
	if err := cmd.Err(); err != nil {
		return db.Session{}, err
	} else if len(cmd.Val()) == 0 {
		return db.Session{}, ErrNotFound
	}
	var stored redisSession
	if err := cmd.Scan(&stored); err != nil {
		return db.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	session := db.Session{
		Token:      token,
		User:       stored.User,
		ExpireTime: time.UnixMilli(stored.Expire).UTC(),
	}
	if session.Expired(r.now()) {
		return db.Session{}, ErrNotFound
	}
	return session, nil
}

// SetFlash satisfies the [Sessions] interface. The flash expires with its
// session.
func (r *RedisSessions) SetFlash(ctx context.Context, token string, flash db.Flash) error {
	ttl, err := r.rdb.PTTL(ctx, r.sessionKey(token)).Result()
	if err != nil {
		return err
	} else if ttl <= 0 {
		return ErrNotFound
	}
	if flash.Empty() {
		return r.rdb.Del(ctx, r.flashKey(token)).Err()
	}
	return r.rdb.Set(ctx, r.flashKey(token), encodeFlash(flash), ttl).Err()
}

// TakeFlash satisfies the [Sessions] interface.
func (r *RedisSessions) TakeFlash(ctx context.Context, token string) (db.Flash, error) {
	val, err := r.rdb.GetDel(ctx, r.flashKey(token)).Result()
	if err == nil {
		return decodeFlash(val), nil
	} else if !errors.Is(err, redis.Nil) {
		return db.Flash{}, err
	}
	n, err := r.rdb.Exists(ctx, r.sessionKey(token)).Result()
	if err != nil {
		return db.Flash{}, err
	} else if n == 0 {
		return db.Flash{}, ErrNotFound
	}
	return db.Flash{}, nil
}

// DeleteSession satisfies the [Sessions] interface.
func (r *RedisSessions) DeleteSession(ctx context.Context, token string) error {
	return r.rdb.Del(ctx, r.sessionKey(token), r.flashKey(token)).Err()
}

// PurgeSessions satisfies the [Sessions] interface. Redis evicts expired
// sessions itself, so there is never anything to remove.
func (r *RedisSessions) PurgeSessions(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisSessions) sessionKey(token string) string {
	return r.prefix + ":session:" + token
}

func (r *RedisSessions) flashKey(token string) string {
	return r.prefix + ":flash:" + token
}

func encodeFlash(flash db.Flash) string {
	return string(flash.Status) + "|" + flash.Text
}

func decodeFlash(val string) db.Flash {
	status, text, _ := strings.Cut(val, "|")
	return db.Flash{
		Text:   text,
		Status: db.FlashStatus(status),
	}
}

var _ Sessions = (*RedisSessions)(nil)
