package caching

import (
	"context"
	"errors"
	"testing"
	"time"
)

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) error { return errors.New("dial tcp: refused") }

func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("dial tcp: refused")
}

func (brokenCache) Delete(context.Context, string) error { return errors.New("dial tcp: refused") }

func TestUseCacheFillsOnMiss(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory(100, time.Minute)

	calls := 0
	load := func() (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := UseCache(ctx, mem, "k", time.Minute, load)
		if err != nil || v != "value" {
			t.Fatalf("UseCache = %q, %v", v, err)
		}
	}
	if calls != 1 {
		t.Fatalf("loader called %d times, want 1", calls)
	}

	if err := mem.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := UseCache(ctx, mem, "k", time.Minute, load); err != nil || calls != 2 {
		t.Fatalf("after delete: calls %d err %v", calls, err)
	}
}

func TestUseCacheSurvivesOutage(t *testing.T) {
	v, err := UseCache(context.Background(), brokenCache{}, "k", time.Minute, func() (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("UseCache = %d, %v", v, err)
	}
}

func TestUseCacheKeepsLoaderError(t *testing.T) {
	mem := NewMemory(100, time.Minute)
	boom := errors.New("boom")

	_, err := UseCache(context.Background(), mem, "k", time.Minute, func() (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	if err := mem.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("deleting a missing key: %v", err)
	}
}
