// Package liveadapter stands in for "a live network (real routers or a
// simulator)" (spec.md §4.D/§4.J) when chameleon is pointed at redis
// instead of the in-process simulator: the controller's Step reads
// converged RIB/forwarding snapshots a router agent would have pushed to
// chameleon:rib:<router>:<prefix> and writes command dispatch records for
// audit/observability, the same way the teacher's pkg/newtron/device/sonic
// package treats redis as SONiC's CONFIG_DB/APPL_DB.
//
// Unlike the teacher's ConfigDB.HasKey, which walks struct tags with
// reflect to find a table by name, Store never reflects: every table has
// an explicit accessor, matching the rest of chameleon's "plug-in
// capability set" style (see pkg/prefix.Ops) rather than ad hoc struct
// inspection.
package liveadapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
	"github.com/nsg-ethz/chameleon/pkg/util"
)

const (
	ribKeyPrefix      = "chameleon:rib:"
	dispatchKeyPrefix = "chameleon:dispatch:"
	dispatchIndexKey  = "chameleon:dispatch:index"

	// maxDispatchRecords bounds the dispatch index list so a long-running
	// controller does not grow it without limit.
	maxDispatchRecords = 1000
)

// Store is a redis-backed mirror of live BGP RIB state plus an audit trail
// of executed commands, for the prefix variant P.
type Store[P comparable] struct {
	client *redis.Client
	ops    prefix.Ops[P]

	// DecodePrefix reconstructs a P from its rendered string form
	// (ops.String's inverse); required only by ListRouterPrefixes, which
	// has to recover P from a scanned redis key. Point-lookups (GetRib,
	// PutRib, DeleteRib) are called with P already in hand and never need
	// it.
	DecodePrefix func(string) (P, error)
}

// New wraps an existing redis client. The caller owns the client's
// lifecycle (Close).
func New[P comparable](client *redis.Client, ops prefix.Ops[P]) *Store[P] {
	return &Store[P]{client: client, ops: ops}
}

// Dial opens a new redis client against addr and pings it.
func Dial[P comparable](ctx context.Context, addr string, ops prefix.Ops[P]) (*Store[P], error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("liveadapter: dial %s: %w", addr, err)
	}
	return New(client, ops), nil
}

// Close closes the underlying redis client.
func (s *Store[P]) Close() error { return s.client.Close() }

func ribKey(router int, prefixRendered string) string {
	return fmt.Sprintf("%s%d:%s", ribKeyPrefix, router, prefixRendered)
}

// PutRib pushes the route a router agent selected for prefixKey, as a
// router would when its locally converged RIB entry changes. fromPeer is
// the peer the route was learned from (RibEntry.FromPeer); pass 0 if the
// route is self-originated.
func (s *Store[P]) PutRib(ctx context.Context, router int, prefixKey P, route *bgp.Route[P], fromPeer int) error {
	key := ribKey(router, s.ops.String(prefixKey))
	fields := encodeRoute(route, fromPeer)
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("liveadapter: put rib %s: %w", key, err)
	}
	return nil
}

// DeleteRib removes a router's stored route for prefixKey, as a router
// would when the decision process withdraws its selection.
func (s *Store[P]) DeleteRib(ctx context.Context, router int, prefixKey P) error {
	key := ribKey(router, s.ops.String(prefixKey))
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("liveadapter: delete rib %s: %w", key, err)
	}
	return nil
}

// GetRib reads back a router's currently stored route for prefixKey. ok is
// false if no agent has pushed a route there (or it was withdrawn).
func (s *Store[P]) GetRib(ctx context.Context, router int, prefixKey P) (route *bgp.Route[P], fromPeer int, ok bool, err error) {
	key := ribKey(router, s.ops.String(prefixKey))
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("liveadapter: get rib %s: %w", key, err)
	}
	if len(vals) == 0 {
		return nil, 0, false, nil
	}
	route, fromPeer, err = decodeRoute[P](prefixKey, vals)
	if err != nil {
		return nil, 0, false, fmt.Errorf("liveadapter: decode rib %s: %w", key, err)
	}
	return route, fromPeer, true, nil
}

// ListRouterPrefixes returns every prefix a router currently has a stored
// RIB entry for, using a cursor-based SCAN rather than KEYS so a large
// table never blocks redis, mirroring the teacher's scanKeys helper.
// Requires DecodePrefix to be set.
func (s *Store[P]) ListRouterPrefixes(ctx context.Context, router int) ([]P, error) {
	if s.DecodePrefix == nil {
		return nil, fmt.Errorf("liveadapter: ListRouterPrefixes: DecodePrefix not set")
	}
	pattern := fmt.Sprintf("%s%d:*", ribKeyPrefix, router)
	keys, err := scanKeys(ctx, s.client, pattern)
	if err != nil {
		return nil, fmt.Errorf("liveadapter: list prefixes for router %d: %w", router, err)
	}
	prefixes := make([]P, 0, len(keys))
	for _, key := range keys {
		_, rendered, ok := strings.Cut(strings.TrimPrefix(key, ribKeyPrefix), ":")
		if !ok {
			continue
		}
		p, err := s.DecodePrefix(rendered)
		if err != nil {
			util.WithField("key", key).WithField("error", err).Warn("liveadapter: skipping undecodable rib key")
			continue
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

// DispatchRecord is one executed command, for the audit trail a
// chameleon execute run leaves behind.
type DispatchRecord struct {
	ID        string
	Stage     string
	Router    int
	Kind      string
	Status    string
	Timestamp time.Time
}

// RecordDispatch appends rec to the dispatch audit trail, trimming the
// index to maxDispatchRecords so it never grows unbounded.
func (s *Store[P]) RecordDispatch(ctx context.Context, rec DispatchRecord) error {
	key := dispatchKeyPrefix + rec.ID
	fields := map[string]interface{}{
		"stage":     rec.Stage,
		"router":    strconv.Itoa(rec.Router),
		"kind":      rec.Kind,
		"status":    rec.Status,
		"timestamp": rec.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.LPush(ctx, dispatchIndexKey, rec.ID)
	pipe.LTrim(ctx, dispatchIndexKey, 0, maxDispatchRecords-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("liveadapter: record dispatch %s: %w", rec.ID, err)
	}
	return nil
}

// RecentDispatches returns up to limit of the most recently recorded
// dispatch records, newest first.
func (s *Store[P]) RecentDispatches(ctx context.Context, limit int64) ([]DispatchRecord, error) {
	ids, err := s.client.LRange(ctx, dispatchIndexKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("liveadapter: recent dispatches: %w", err)
	}
	records := make([]DispatchRecord, 0, len(ids))
	for _, id := range ids {
		vals, err := s.client.HGetAll(ctx, dispatchKeyPrefix+id).Result()
		if err != nil || len(vals) == 0 {
			continue
		}
		router, _ := strconv.Atoi(vals["router"])
		ts, _ := time.Parse(time.RFC3339Nano, vals["timestamp"])
		records = append(records, DispatchRecord{
			ID: id, Stage: vals["stage"], Router: router,
			Kind: vals["kind"], Status: vals["status"], Timestamp: ts,
		})
	}
	return records, nil
}

// scanKeys iterates redis keys matching pattern with cursor-based SCAN,
// same non-blocking approach as the teacher's sonic.scanKeys.
func scanKeys(ctx context.Context, client *redis.Client, pattern string) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
