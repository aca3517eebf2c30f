package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is the keyspace used for refresh records.
const DefaultRedisPrefix = "refresh_tokens"

const (
	fieldUserID    = "user_id"
	fieldTokenHash = "token_hash"
	fieldExpiresAt = "expires_at"
)

// RedisBackend stores records in Redis:
//
//	<prefix>:<id>              hash {user_id, token_hash, expires_at}
//	<prefix>:token:<digest>    string -> id
//	<prefix>:user:<userID>     set of ids
//
// Record and token keys expire with the handle TTL; the user set expires with
// its newest member.
type RedisBackend struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisBackend wraps rdb. An empty prefix selects DefaultRedisPrefix.
func NewRedisBackend(rdb redis.UniversalClient, prefix string) (*RedisBackend, error) {
	if rdb == nil {
		return nil, errors.New("refresh: nil redis client")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{rdb: rdb, prefix: prefix}, nil
}

func (b *RedisBackend) recordKey(id string) string { return b.prefix + ":" + id }

func (b *RedisBackend) tokenKey(hash string) string { return b.prefix + ":token:" + hash }

func (b *RedisBackend) userKey(userID string) string { return b.prefix + ":user:" + userID }

// Put writes the token index, record hash and owner set, each expiring after ttl.
func (b *RedisBackend) Put(ctx context.Context, rec Record, ttl time.Duration) error {
	ok, err := b.rdb.SetNX(ctx, b.tokenKey(rec.TokenHash), rec.ID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateToken
	}

	_, err = b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		rk := b.recordKey(rec.ID)
		uk := b.userKey(rec.UserID)
		p.HSet(ctx, rk,
			fieldUserID, rec.UserID,
			fieldTokenHash, rec.TokenHash,
			fieldExpiresAt, strconv.FormatInt(rec.ExpiresAt.Unix(), 10),
		)
		p.Expire(ctx, rk, ttl)
		p.SAdd(ctx, uk, rec.ID)
		p.Expire(ctx, uk, ttl)
		return nil
	})
	if err != nil {
		_ = b.rdb.Del(context.WithoutCancel(ctx), b.tokenKey(rec.TokenHash)).Err()
		return err
	}
	return nil
}

// GetByTokenHash resolves the digest index and loads the record it points to.
func (b *RedisBackend) GetByTokenHash(ctx context.Context, tokenHash string) (Record, bool, error) {
	id, err := b.rdb.Get(ctx, b.tokenKey(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	fields, err := b.rdb.HGetAll(ctx, b.recordKey(id)).Result()
	if err != nil {
		return Record{}, false, err
	}
	if len(fields) == 0 {
		// Index outlived its record.
		return Record{}, false, nil
	}

	rec, err := parseRedisRecord(id, fields)
	if err != nil {
		return Record{}, false, err
	}
	if rec.TokenHash != tokenHash {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Delete removes the record, its digest index and its owner set membership.
func (b *RedisBackend) Delete(ctx context.Context, rec Record) error {
	hash := rec.TokenHash
	if hash == "" {
		got, err := b.rdb.HGet(ctx, b.recordKey(rec.ID), fieldTokenHash).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		hash = got
	}

	_, err := b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, b.recordKey(rec.ID))
		if hash != "" {
			p.Del(ctx, b.tokenKey(hash))
		}
		if rec.UserID != "" {
			p.SRem(ctx, b.userKey(rec.UserID), rec.ID)
		}
		return nil
	})
	return err
}

// DeleteByUser removes every record in the owner set of userID.
func (b *RedisBackend) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	uk := b.userKey(userID)
	ids, err := b.rdb.SMembers(ctx, uk).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	hashes := make([]*redis.StringCmd, len(ids))
	_, err = b.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			hashes[i] = p.HGet(ctx, b.recordKey(id), fieldTokenHash)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}

	_, err = b.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		keys := make([]string, 0, 2*len(ids))
		for i, id := range ids {
			keys = append(keys, b.recordKey(id))
			if h, herr := hashes[i].Result(); herr == nil && h != "" {
				keys = append(keys, b.tokenKey(h))
			}
		}
		p.Del(ctx, keys...)
		p.Del(ctx, uk)
		return nil
	})
	if err != nil {
		return 0, err
	}

	var n int64
	for _, h := range hashes {
		if _, herr := h.Result(); herr == nil {
			n++
		}
	}
	return n, nil
}

func parseRedisRecord(id string, fields map[string]string) (Record, error) {
	exp, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("refresh: corrupt record %s: %w", id, err)
	}
	return Record{
		ID:        id,
		UserID:    fields[fieldUserID],
		TokenHash: fields[fieldTokenHash],
		ExpiresAt: time.Unix(exp, 0).UTC(),
	}, nil
}
