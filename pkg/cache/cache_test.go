package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lerian-oss/coord/pkg/adapters/memoryadapter"
	"github.com/lerian-oss/coord/pkg/cache"
	"github.com/lerian-oss/coord/pkg/cerrors"
)

func TestCache_SetGetDelete(t *testing.T) {
	c := cache.New(memoryadapter.NewCacheAdapter(), "k")
	ctx := context.Background()

	if err := c.Set(ctx, []byte("v"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, ok, err := c.Get(ctx)
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("unexpected result: %v %v %v", val, ok, err)
	}

	deleted, err := c.Delete(ctx)
	if err != nil || !deleted {
		t.Fatalf("unexpected result: %v %v", deleted, err)
	}

	_, ok, _ = c.Get(ctx)
	if ok {
		t.Fatal("expected key to be gone after delete")
	}
}

func TestCache_ExpiresByTTL(t *testing.T) {
	c := cache.New(memoryadapter.NewCacheAdapter(), "k")
	ctx := context.Background()

	ttl := 20 * time.Millisecond
	_ = c.Set(ctx, []byte("v"), &ttl)

	time.Sleep(30 * time.Millisecond)

	_, ok, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestCache_IncrementCreatesAndAccumulates(t *testing.T) {
	c := cache.New(memoryadapter.NewCacheAdapter(), "k")
	ctx := context.Background()

	v, err := c.Increment(ctx, 5, nil)
	if err != nil || v != 5 {
		t.Fatalf("unexpected result: %v %v", v, err)
	}

	v, err = c.Increment(ctx, 3, nil)
	if err != nil || v != 8 {
		t.Fatalf("unexpected result: %v %v", v, err)
	}

	v, err = c.Decrement(ctx, 2, nil)
	if err != nil || v != 6 {
		t.Fatalf("unexpected result: %v %v", v, err)
	}
}

func TestCache_IncrementNonNumericFails(t *testing.T) {
	c := cache.New(memoryadapter.NewCacheAdapter(), "k")
	ctx := context.Background()

	_ = c.Set(ctx, []byte("not a number"), nil)

	_, err := c.Increment(ctx, 1, nil)

	var typeErr cerrors.TypeCacheError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected TypeCacheError, got %T: %v", err, err)
	}
}
