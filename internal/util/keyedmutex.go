package util

import (
	"context"
	"sync"
)

// KeyedMutex serializes work per key while letting distinct keys proceed
// concurrently. Idle keys hold no memory; an entry exists only while some
// goroutine holds or waits on it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until the key is held.
func (k *KeyedMutex) Lock(key string) {
	l := k.retain(key)
	l.ch <- struct{}{}
}

// LockContext blocks until the key is held or ctx is done.
func (k *KeyedMutex) LockContext(ctx context.Context, key string) error {
	l := k.retain(key)
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key)
		return ctx.Err()
	}
}

// Unlock releases the key. Calling it for a key that is not held panics.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	l, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		panic("util: unlock of unheld key " + key)
	}
	<-l.ch
	k.release(key)
}

func (k *KeyedMutex) retain(key string) *keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *KeyedMutex) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}
