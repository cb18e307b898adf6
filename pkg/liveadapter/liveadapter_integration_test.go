//go:build integration

package liveadapter

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
)

// testRedisAddr mirrors the teacher's testutil.RedisAddr: check the env
// var first, default to localhost otherwise.
func testRedisAddr() string {
	if addr := os.Getenv("CHAMELEON_TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

func newTestStore(t *testing.T) (*Store[int], context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr(), DB: 9})
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test redis not reachable at %s: %v", testRedisAddr(), err)
	}
	t.Cleanup(func() { client.FlushDB(context.Background()); client.Close() })

	store := New[int](client, prefix.FlatOps)
	store.DecodePrefix = strconv.Atoi
	return store, ctx
}

func TestStore_PutGetDeleteRib(t *testing.T) {
	store, ctx := newTestStore(t)

	route := &bgp.Route[int]{Prefix: 100, NextHop: 3, ASPath: []int32{65001}}
	if err := store.PutRib(ctx, 1, 100, route, 3); err != nil {
		t.Fatalf("PutRib: %v", err)
	}

	got, fromPeer, ok, err := store.GetRib(ctx, 1, 100)
	if err != nil || !ok {
		t.Fatalf("GetRib: ok=%v err=%v", ok, err)
	}
	if got.NextHop != 3 || fromPeer != 3 {
		t.Errorf("GetRib returned %+v fromPeer=%d", got, fromPeer)
	}

	if err := store.DeleteRib(ctx, 1, 100); err != nil {
		t.Fatalf("DeleteRib: %v", err)
	}
	_, _, ok, err = store.GetRib(ctx, 1, 100)
	if err != nil {
		t.Fatalf("GetRib after delete: %v", err)
	}
	if ok {
		t.Error("expected GetRib to report not-ok after DeleteRib")
	}
}

func TestStore_ListRouterPrefixes(t *testing.T) {
	store, ctx := newTestStore(t)

	for _, p := range []int{100, 200} {
		route := &bgp.Route[int]{Prefix: p, NextHop: 1, ASPath: []int32{65001}}
		if err := store.PutRib(ctx, 1, p, route, 1); err != nil {
			t.Fatalf("PutRib(%d): %v", p, err)
		}
	}

	prefixes, err := store.ListRouterPrefixes(ctx, 1)
	if err != nil {
		t.Fatalf("ListRouterPrefixes: %v", err)
	}
	if len(prefixes) != 2 {
		t.Fatalf("expected 2 prefixes, got %v", prefixes)
	}
}

func TestStore_RecordAndListDispatches(t *testing.T) {
	store, ctx := newTestStore(t)

	for i, id := range []string{"cmd-1", "cmd-2"} {
		rec := DispatchRecord{
			ID: id, Stage: "main", Router: 1,
			Kind: "raw", Status: "done", Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := store.RecordDispatch(ctx, rec); err != nil {
			t.Fatalf("RecordDispatch(%s): %v", id, err)
		}
	}

	records, err := store.RecentDispatches(ctx, 10)
	if err != nil {
		t.Fatalf("RecentDispatches: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 dispatch records, got %d", len(records))
	}
	if records[0].ID != "cmd-2" {
		t.Errorf("expected the most recent record first, got %s", records[0].ID)
	}
}
