package cache_test

import (
	"testing"
	"time"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[[]domain.Wallet](5 * time.Minute)
	defer c.Stop()

	c.Set("user-1", []domain.Wallet{{ID: "w1", Name: "GCB"}})
	val, ok := c.Get("user-1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if len(val) != 1 || val[0].ID != "w1" {
		t.Errorf("unexpected cached wallets: %+v", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Stop()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Stop()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	c := cache.New[string](20 * time.Millisecond)
	defer c.Stop()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if n := c.Len(); n != 0 {
		t.Fatalf("expected sweep to empty the cache, got %d entries", n)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Stop()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_StopTwice(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Stop()
	c.Stop()
}
