package cache

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestKeyDeterminism(t *testing.T) {
	a := url.Values{}
	a.Set("code", "7203")
	a.Set("from", "2026-01-01")

	b := url.Values{}
	b.Set("from", "2026-01-01")
	b.Set("code", "7203")

	if Key("GET", "/prices/daily_quotes", a) != Key("GET", "/prices/daily_quotes", b) {
		t.Error("Parameter order must not change the key")
	}
}

func TestKeyDistinguishesValues(t *testing.T) {
	a := url.Values{"code": {"7203"}}
	b := url.Values{"code": {"6758"}}

	if Key("GET", "/prices/daily_quotes", a) == Key("GET", "/prices/daily_quotes", b) {
		t.Error("Differing query values must produce different keys")
	}
}

func TestKeyDistinguishesPathAndMethod(t *testing.T) {
	p := url.Values{"code": {"7203"}}

	if Key("GET", "/a", p) == Key("GET", "/b", p) {
		t.Error("Differing paths must produce different keys")
	}
	if Key("GET", "/a", p) == Key("POST", "/a", p) {
		t.Error("Differing methods must produce different keys")
	}
}

func TestKeyNoParams(t *testing.T) {
	got := Key("GET", "/listed/info", nil)
	if got != "GET /listed/info" {
		t.Errorf("Unexpected key: %q", got)
	}
}

func TestGetSet(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	if _, found := c.Get(ctx, "k"); found {
		t.Error("Expected miss on empty cache")
	}

	c.Set(ctx, "k", []byte(`{"a":1}`), time.Minute)

	body, found := c.Get(ctx, "k")
	if !found {
		t.Fatal("Expected hit after Set")
	}
	if string(body) != `{"a":1}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestTTLBoundary(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	base := time.Now()
	now := base
	c.now = func() time.Time { return now }

	ttl := 100 * time.Millisecond
	c.Set(ctx, "k", []byte("v"), ttl)

	// Just inside the TTL: served from cache.
	now = base.Add(ttl - time.Millisecond)
	if _, found := c.Get(ctx, "k"); !found {
		t.Error("Entry at storedAt+ttl-1ms must be served")
	}

	// Just past the TTL: evicted.
	now = base.Add(ttl + time.Millisecond)
	if _, found := c.Get(ctx, "k"); found {
		t.Error("Entry at storedAt+ttl+1ms must not be served")
	}

	if c.Len() != 0 {
		t.Errorf("Expected lazy eviction to remove the entry, have %d", c.Len())
	}
}

func TestSetOverwrite(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("old"), time.Minute)
	c.Set(ctx, "k", []byte("new"), time.Minute)

	body, found := c.Get(ctx, "k")
	if !found || string(body) != "new" {
		t.Errorf("Expected last writer to win, got %q found=%v", body, found)
	}
}

func TestZeroTTLNotStored(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	if _, found := c.Get(ctx, "k"); found {
		t.Error("Zero TTL entries must not be stored")
	}
}
