package liveadapter

import (
	"testing"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
)

func TestEncodeDecodeRoute_RoundTrip(t *testing.T) {
	lp := 200
	med := 5
	originator := 7
	route := &bgp.Route[int]{
		Prefix:       100,
		NextHop:      3,
		ASPath:       []int32{65001, 70000},
		LocalPref:    &lp,
		MED:          &med,
		Weight:       32768,
		Communities:  []uint32{100, 200},
		OriginatorID: &originator,
		ClusterList:  []int{9},
	}

	fields := encodeRoute(route, 42)
	strFields := make(map[string]string, len(fields))
	for k, v := range fields {
		strFields[k] = v.(string)
	}

	decoded, fromPeer, err := decodeRoute[int](100, strFields)
	if err != nil {
		t.Fatalf("decodeRoute: %v", err)
	}
	if fromPeer != 42 {
		t.Errorf("fromPeer = %d, want 42", fromPeer)
	}
	if decoded.NextHop != 3 || decoded.Weight != 32768 {
		t.Errorf("got NextHop=%d Weight=%d", decoded.NextHop, decoded.Weight)
	}
	if len(decoded.ASPath) != 2 || decoded.ASPath[0] != 65001 || decoded.ASPath[1] != 70000 {
		t.Errorf("ASPath round-trip mismatch: %v", decoded.ASPath)
	}
	if decoded.LocalPref == nil || *decoded.LocalPref != 200 {
		t.Errorf("LocalPref round-trip mismatch: %v", decoded.LocalPref)
	}
	if decoded.MED == nil || *decoded.MED != 5 {
		t.Errorf("MED round-trip mismatch: %v", decoded.MED)
	}
	if len(decoded.Communities) != 2 || decoded.Communities[0] != 100 || decoded.Communities[1] != 200 {
		t.Errorf("Communities round-trip mismatch: %v", decoded.Communities)
	}
	if decoded.OriginatorID == nil || *decoded.OriginatorID != 7 {
		t.Errorf("OriginatorID round-trip mismatch: %v", decoded.OriginatorID)
	}
	if len(decoded.ClusterList) != 1 || decoded.ClusterList[0] != 9 {
		t.Errorf("ClusterList round-trip mismatch: %v", decoded.ClusterList)
	}
}

func TestEncodeRoute_OmitsUnsetOptionalAttributes(t *testing.T) {
	route := &bgp.Route[int]{Prefix: 100, NextHop: 1, ASPath: []int32{65001}}
	fields := encodeRoute(route, 0)
	for _, key := range []string{"local_pref", "med", "communities", "originator_id"} {
		if _, ok := fields[key]; ok {
			t.Errorf("expected %q to be omitted when unset, got %v", key, fields[key])
		}
	}
}

func TestDecodeRoute_RejectsMalformedNextHop(t *testing.T) {
	if _, _, err := decodeRoute[int](100, map[string]string{"next_hop": "not-a-number"}); err == nil {
		t.Fatal("expected an error for a malformed next_hop field")
	}
}

func TestRibKey_EncodesRouterAndRenderedPrefix(t *testing.T) {
	got := ribKey(3, "10.0.0.0/24")
	want := "chameleon:rib:3:10.0.0.0/24"
	if got != want {
		t.Errorf("ribKey = %q, want %q", got, want)
	}
}
