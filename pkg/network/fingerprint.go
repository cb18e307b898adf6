package network

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
)

// Fingerprint hashes the network's observable state (topology, sessions,
// RIB contents) deterministically, giving partial-clone equality a cheap
// pre-check before a full deep comparison.
func (n *Network[P]) Fingerprint() ([]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}

	ids := n.routerIDs()
	sort.Ints(ids)
	for _, id := range ids {
		r := n.Routers[id]
		fmt.Fprintf(h, "router %d as=%d kind=%s lb=%v\n", r.ID, r.AS, r.Kind, r.LoadBalance)

		peers := make([]int, 0, len(r.Sessions))
		for peer := range r.Sessions {
			peers = append(peers, peer)
		}
		sort.Ints(peers)
		for _, peer := range peers {
			fmt.Fprintf(h, "  session %d->%d type=%s\n", r.ID, peer, r.Sessions[peer].Type)
		}

		for _, k := range r.Rib.Keys() {
			entry, _ := r.Rib.Get(k)
			fmt.Fprintf(h, "  rib %s from=%d %s\n", n.ops.String(k), entry.FromPeer, routeFingerprint(entry.Route))
		}
	}

	for _, l := range n.Graph.Links() {
		a, b := l.A, l.B
		if a > b {
			a, b = b, a
		}
		fmt.Fprintf(h, "link %d-%d weight=%g area=%d\n", a, b, l.Weight, l.Area)
	}

	return h.Sum(nil), nil
}

func routeFingerprint[P comparable](route *bgp.Route[P]) string {
	if route == nil {
		return "<none>"
	}
	return fmt.Sprintf("as_path=%v next_hop=%d local_pref=%d med=%d weight=%d communities=%v",
		route.ASPath, route.NextHop, route.EffectiveLocalPref(), route.EffectiveMED(), route.Weight, route.Communities)
}
