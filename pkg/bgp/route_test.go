package bgp

import "testing"

func TestRoute_EffectiveDefaults(t *testing.T) {
	r := &Route[int]{Prefix: 1}
	if got := r.EffectiveLocalPref(); got != DefaultLocalPref {
		t.Errorf("EffectiveLocalPref() = %d, want %d", got, DefaultLocalPref)
	}
	if got := r.EffectiveMED(); got != DefaultMED {
		t.Errorf("EffectiveMED() = %d, want %d", got, DefaultMED)
	}
}

func TestRoute_EqualIgnoresUnsetDefaults(t *testing.T) {
	lp := DefaultLocalPref
	med := DefaultMED
	a := &Route[int]{Prefix: 1, NextHop: 2}
	b := &Route[int]{Prefix: 1, NextHop: 2, LocalPref: &lp, MED: &med}
	if !a.Equal(b) {
		t.Error("routes differing only by explicit vs. imputed defaults should be equal")
	}
}

func TestRoute_EqualDiffersOnAttribute(t *testing.T) {
	a := &Route[int]{Prefix: 1, NextHop: 2, Weight: 10}
	b := &Route[int]{Prefix: 1, NextHop: 2, Weight: 20}
	if a.Equal(b) {
		t.Error("routes with different weight must not be equal")
	}
}

func TestRoute_CloneIsDeep(t *testing.T) {
	lp := 200
	orig := &Route[int]{
		Prefix:       1,
		ASPath:       []int32{65001, 65002},
		Communities:  []uint32{100, 200},
		ClusterList:  []int{5},
		LocalPref:    &lp,
	}
	clone := orig.Clone()
	clone.ASPath[0] = 1
	clone.Communities[0] = 999
	clone.ClusterList[0] = 1
	*clone.LocalPref = 1

	if orig.ASPath[0] != 65001 {
		t.Error("mutating clone's ASPath affected the original")
	}
	if orig.Communities[0] != 100 {
		t.Error("mutating clone's Communities affected the original")
	}
	if orig.ClusterList[0] != 5 {
		t.Error("mutating clone's ClusterList affected the original")
	}
	if *orig.LocalPref != 200 {
		t.Error("mutating clone's LocalPref affected the original")
	}
}

func TestRoute_CommunityOrderedSet(t *testing.T) {
	r := &Route[int]{}
	r.AddCommunity(100)
	r.AddCommunity(200)
	r.AddCommunity(100) // duplicate, ignored

	if len(r.Communities) != 2 {
		t.Fatalf("expected 2 communities after duplicate add, got %d", len(r.Communities))
	}
	if !r.HasCommunity(200) {
		t.Error("expected HasCommunity(200) to be true")
	}
	r.RemoveCommunity(100)
	if r.HasCommunity(100) {
		t.Error("expected HasCommunity(100) to be false after removal")
	}
	if r.Communities[0] != 200 {
		t.Errorf("expected remaining order to preserve 200, got %v", r.Communities)
	}
}

func TestRoute_FirstAS(t *testing.T) {
	r := &Route[int]{ASPath: []int32{65001, 65002}}
	if got := r.FirstAS(); got != 65001 {
		t.Errorf("FirstAS() = %d, want 65001", got)
	}
	empty := &Route[int]{}
	if got := empty.FirstAS(); got != 0 {
		t.Errorf("FirstAS() on empty path = %d, want 0", got)
	}
}
