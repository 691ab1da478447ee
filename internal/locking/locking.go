// Package locking serializes work on a shared key, used to scope payment
// initiation per booking. A redis-backed locker coordinates across replicas;
// the in-process locker backs single-node deployments and tests.
package locking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Locker acquires an exclusive lock on key, blocking until it is granted or
// ctx is done. The returned release function is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const (
	defaultTTL        = 30 * time.Second
	acquireRetryDelay = 50 * time.Millisecond
)

type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	if client == nil {
		return nil
	}
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    defaultTTL,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("lock client not configured")
	}
	if key == "" {
		return nil, errors.New("lock key is empty")
	}

	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquireRetryDelay):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = l.script.Run(context.Background(), l.client, []string{key}, token).Err()
		})
	}
	return release, nil
}

// KeyedMutex is the in-process Locker. Locks are held per key; an idle key
// costs one map entry until released by its last holder.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: map[string]*keyLock{}}
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &keyLock{}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		entry.mu.Lock()
		close(acquired)
	}()

	select {
	case <-ctx.Done():
		go func() {
			<-acquired
			m.release(key, entry)
		}()
		return nil, ctx.Err()
	case <-acquired:
	}

	var once sync.Once
	release := func() {
		once.Do(func() { m.release(key, entry) })
	}
	return release, nil
}

func (m *KeyedMutex) release(key string, entry *keyLock) {
	entry.mu.Unlock()
	m.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}
