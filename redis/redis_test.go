package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := Connect(context.Background(), "redis://"+mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestGetMissingKeyIsErrNil(t *testing.T) {
	c, _ := newTestClient(t)
	if _, err := c.Get(context.Background(), "missing"); err != ErrNil {
		t.Errorf("expected ErrNil, got %v", err)
	}
}

func TestSetKeepTTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)

	if err := c.Set(ctx, "k", "v1", time.Hour); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(10 * time.Minute)
	if err := c.Set(ctx, "k", "v2", KeepTTL); err != nil {
		t.Fatal(err)
	}

	if got, _ := c.Get(ctx, "k"); got != "v2" {
		t.Errorf("value = %q, want v2", got)
	}
	if ttl := mr.TTL("k"); ttl != 50*time.Minute {
		t.Errorf("ttl = %v, want 50m", ttl)
	}
}

func TestDel(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestClient(t)
	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("k") {
		t.Error("key still exists")
	}
}

func TestPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	sub := c.Subscribe(ctx, "events:test")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Publish(ctx, "events:test", "hello"); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Payload != "hello" {
			t.Errorf("payload = %q", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}
