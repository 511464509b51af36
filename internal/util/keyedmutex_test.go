package util

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("account:1")
			defer km.Unlock("account:1")
			counter++
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on independent key blocked")
	}
}

func TestKeyedMutexLockContextCancel(t *testing.T) {
	km := NewKeyedMutex()
	km.Lock("a")
	defer km.Unlock("a")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := km.LockContext(ctx, "a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("LockContext() error = %v, want deadline exceeded", err)
	}
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := NewKeyedMutex()
	km.Lock("a")
	km.Unlock("a")
	km.mu.Lock()
	n := len(km.locks)
	km.mu.Unlock()
	if n != 0 {
		t.Fatalf("locks map has %d entries, want 0", n)
	}
}
