package bgp

import "fmt"

// SessionType is the role a BGP session plays between its two endpoints.
// iBGP types are configured at each end independently per spec.md §3: "a
// session is 'client' at one end ↔ 'peer at RR' at the other."
type SessionType int

const (
	EBGP SessionType = iota
	IBGPPeer
	IBGPClient
)

func (t SessionType) String() string {
	switch t {
	case EBGP:
		return "ebgp"
	case IBGPPeer:
		return "ibgp-peer"
	case IBGPClient:
		return "ibgp-client"
	default:
		return fmt.Sprintf("session-type(%d)", int(t))
	}
}

// Session is a directed BGP session from U to V, with the type as U sees
// it. The reverse direction V→U carries its own, possibly different, type
// (route-reflector dual: U sees V as a client while V sees U as its RR
// peer).
type Session struct {
	U, V int
	Type SessionType
}

// IsIBGP reports whether the session is an iBGP session of either role.
func (s Session) IsIBGP() bool {
	return s.Type == IBGPPeer || s.Type == IBGPClient
}

// ReflectsTo reports whether a route learned over session "from" may be
// re-advertised over session "to", both viewed from the same router,
// implementing the route-reflection filter of spec.md §4.C: a route
// learned from an iBGP peer is not re-advertised to another iBGP peer
// unless the receiving router is a route-reflector and the outgoing
// session is a client session, or vice versa. eBGP-learned routes and
// eBGP-bound sessions are never restricted by this rule.
func ReflectsTo(from, to Session) bool {
	if from.Type == EBGP || to.Type == EBGP {
		return true
	}
	// Both iBGP: allowed only if at least one side of the pair is a
	// client session (the router is acting as a route reflector for it).
	return from.Type == IBGPClient || to.Type == IBGPClient
}
