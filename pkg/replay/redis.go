// Copyright (C) 2025 SAGE-X Project
//
// This file is part of sage-www-go.
//
// sage-www-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// sage-www-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with sage-www-go.  If not, see <https://www.gnu.org/licenses/>.

package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces replay keys in a shared Redis
const DefaultKeyPrefix = "sagewww:replay:"

// SetNXer is the subset of redis.Cmdable a RedisGuard needs
type SetNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisGuard keeps seen keys in Redis so that several receivers share
// one replay history
type RedisGuard struct {
	client SetNXer
	prefix string
}

// NewRedisGuard creates a RedisGuard on an existing client
func NewRedisGuard(client SetNXer, prefix string) *RedisGuard {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisGuard{client: client, prefix: prefix}
}

// NewRedisGuardFromAddr connects to the Redis server at addr
func NewRedisGuardFromAddr(ctx context.Context, addr, password string, db int) (*RedisGuard, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("replay: redis ping %s: %w", addr, err)
	}
	return NewRedisGuard(client, ""), client, nil
}

// Seen implements Guard with SET NX and an expiry
func (g *RedisGuard) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	stored, err := g.client.SetNX(ctx, g.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay: redis setnx: %w", err)
	}
	return !stored, nil
}

var (
	_ Guard = (*MemoryGuard)(nil)
	_ Guard = (*RedisGuard)(nil)
)
