// Package scenario loads the literal end-to-end fixtures of spec.md §8
// from YAML: a fixed topology, the initial BGP advertisements, a
// configuration diff, and the plan shape/invariant the scenario expects
// after decomposition and execution. It mirrors the teacher's pkg/newtest
// YAML scenario runner, specialized to chameleon's int-prefix topologies.
package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"github.com/nsg-ethz/chameleon/pkg/decompose"
	"github.com/nsg-ethz/chameleon/pkg/device"
	"github.com/nsg-ethz/chameleon/pkg/forwarding"
	"github.com/nsg-ethz/chameleon/pkg/invariant"
	"github.com/nsg-ethz/chameleon/pkg/network"
	"github.com/nsg-ethz/chameleon/pkg/prefix"
	"github.com/nsg-ethz/chameleon/pkg/queue"
	"github.com/nsg-ethz/chameleon/pkg/routemap"
)

// Router is one topology entry.
type Router struct {
	ID   int    `yaml:"id"`
	AS   int32  `yaml:"as"`
	Kind string `yaml:"kind"` // "internal" or "external"
	Name string `yaml:"name"`
}

// Link is an OSPF link between two routers; either end may be an
// external router.
type Link struct {
	A      int     `yaml:"a"`
	B      int     `yaml:"b"`
	Weight float64 `yaml:"weight"`
	Area   int     `yaml:"area"`
}

// Session is a BGP session between two routers.
type Session struct {
	A     int    `yaml:"a"`
	B     int    `yaml:"b"`
	AType string `yaml:"a_type"` // "ibgp-peer", "ibgp-client" or "ebgp"
	BType string `yaml:"b_type"`
}

// ExternalRoute is a route an external router originates.
type ExternalRoute struct {
	Router    int     `yaml:"router"`
	Prefix    int     `yaml:"prefix"`
	NextHop   int     `yaml:"next_hop"`
	ASPath    []int32 `yaml:"as_path"`
	LocalPref *int    `yaml:"local_pref,omitempty"`
}

// RouteMapEntrySpec describes one route-map entry to bind at load time or
// to insert/remove as a diff step.
type RouteMapEntrySpec struct {
	Router   int    `yaml:"router"`
	Peer     int    `yaml:"peer"`
	Outbound bool   `yaml:"outbound"`
	Order    int    `yaml:"order"`
	State    string `yaml:"state"` // "allow" or "deny"

	MatchCommunityContains *uint32 `yaml:"match_community_contains,omitempty"`

	SetLocalPref *int     `yaml:"set_local_pref,omitempty"`
	AddCommunity []uint32 `yaml:"add_community,omitempty"`
}

// DiffStep is one configuration-diff entry (decompose.DiffEntry source
// form): exactly one of the modifier fields is set.
type DiffStep struct {
	Kind     string `yaml:"kind"` // "igp_only", "bgp_only", "composite"
	Prefixes []int  `yaml:"prefixes,omitempty"`

	LinkWeight    *Link              `yaml:"link_weight,omitempty"`
	Area          *Link              `yaml:"area,omitempty"`
	Session       *Session           `yaml:"session,omitempty"`
	RouteMapEntry *RouteMapEntrySpec `yaml:"route_map_entry,omitempty"`
	Advertise     *ExternalRoute     `yaml:"advertise,omitempty"`
	Withdraw      *struct {
		Router int `yaml:"router"`
		Prefix int `yaml:"prefix"`
	} `yaml:"withdraw,omitempty"`
}

// PlanShape is the expected round counts per stage, for asserting against
// a compiled decompose.Decomposition.
type PlanShape struct {
	Setup        int `yaml:"setup"`
	AtomicBefore int `yaml:"atomic_before"`
	Main         int `yaml:"main"`
	AtomicAfter  int `yaml:"atomic_after"`
	Cleanup      int `yaml:"cleanup"`
}

// Scenario is one loaded YAML fixture.
type Scenario struct {
	Name           string              `yaml:"name"`
	Description    string              `yaml:"description"`
	Routers        []Router            `yaml:"routers"`
	Links          []Link              `yaml:"links"`
	Sessions       []Session           `yaml:"sessions"`
	ExternalRoutes []ExternalRoute     `yaml:"external_routes"`
	RouteMapEntries []RouteMapEntrySpec `yaml:"route_map_entries,omitempty"`
	Diff           []DiffStep          `yaml:"diff"`

	// CheckRouters restricts the post-execution reachability check to
	// this router set; empty means every internal router.
	CheckRouters []int `yaml:"check_routers,omitempty"`
	// ExpectReachable is nil when the scenario makes no reachability
	// claim (e.g. a retraction scenario where unreachability is
	// expected), true/false otherwise.
	ExpectReachable *bool     `yaml:"expect_reachable,omitempty"`
	ExpectedPlan    PlanShape `yaml:"expected_plan"`
}

// Load reads and parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: reading %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: parsing %s: %w", path, err)
	}
	return &s, nil
}

func parseKind(s string) (device.Kind, error) {
	switch s {
	case "internal":
		return device.Internal, nil
	case "external":
		return device.External, nil
	default:
		return 0, fmt.Errorf("scenario: unknown router kind %q", s)
	}
}

func parseSessionType(s string) (bgp.SessionType, error) {
	switch s {
	case "ibgp-peer":
		return bgp.IBGPPeer, nil
	case "ibgp-client":
		return bgp.IBGPClient, nil
	case "ebgp":
		return bgp.EBGP, nil
	default:
		return 0, fmt.Errorf("scenario: unknown session type %q", s)
	}
}

// Build constructs a fresh network for the scenario's topology: routers,
// links, sessions, bound route-map entries and initial advertisements.
// Called once per before/after network so the two stay independent.
func (s *Scenario) Build() (*network.Network[int], error) {
	n := network.New[int](prefix.FlatOps, queue.NewFIFO[int]())
	n.Mode = network.ModeAuto

	for _, r := range s.Routers {
		kind, err := parseKind(r.Kind)
		if err != nil {
			return nil, err
		}
		n.AddRouter(r.ID, r.AS, kind, r.Name)
	}
	for _, l := range s.Links {
		if err := n.SetLinkWeight(l.A, l.B, l.Weight); err != nil {
			return nil, fmt.Errorf("scenario: link %d-%d: %w", l.A, l.B, err)
		}
		if l.Area != 0 {
			if err := n.SetOSPFArea(l.A, l.B, l.Area); err != nil {
				return nil, fmt.Errorf("scenario: area %d-%d: %w", l.A, l.B, err)
			}
		}
	}
	for _, sess := range s.Sessions {
		aType, err := parseSessionType(sess.AType)
		if err != nil {
			return nil, err
		}
		bType, err := parseSessionType(sess.BType)
		if err != nil {
			return nil, err
		}
		if err := n.SetBGPSession(sess.A, sess.B, aType, bType); err != nil {
			return nil, fmt.Errorf("scenario: session %d-%d: %w", sess.A, sess.B, err)
		}
	}
	for i := range s.RouteMapEntries {
		if err := applyRouteMapEntry(n, &s.RouteMapEntries[i]); err != nil {
			return nil, err
		}
	}
	for _, adv := range s.ExternalRoutes {
		route := &bgp.Route[int]{
			Prefix: adv.Prefix, NextHop: adv.NextHop, ASPath: adv.ASPath, LocalPref: adv.LocalPref,
		}
		if err := n.AdvertiseExternalRoute(adv.Router, route); err != nil {
			return nil, fmt.Errorf("scenario: advertise at %d: %w", adv.Router, err)
		}
	}
	return n, nil
}

func applyRouteMapEntry(n *network.Network[int], spec *RouteMapEntrySpec) error {
	entry, err := buildEntry(spec)
	if err != nil {
		return err
	}
	mod := &network.RouteMapEntryModifier[int]{
		Router: spec.Router, Peer: spec.Peer, Outbound: spec.Outbound,
		Insert: true, EntryOrder: spec.Order, Entry: entry,
	}
	return n.ApplyModifier(mod)
}

func buildEntry(spec *RouteMapEntrySpec) (*routemap.Entry[int], error) {
	var state routemap.EntryState
	switch spec.State {
	case "allow", "":
		state = routemap.Allow
	case "deny":
		state = routemap.Deny
	default:
		return nil, fmt.Errorf("scenario: unknown route-map state %q", spec.State)
	}

	var matches []routemap.Match[int]
	if spec.MatchCommunityContains != nil {
		matches = append(matches, routemap.MatchCommunityContains[int](*spec.MatchCommunityContains))
	}

	var sets []routemap.Set[int]
	if spec.SetLocalPref != nil {
		sets = append(sets, routemap.SetLocalPref[int](*spec.SetLocalPref))
	}
	for _, c := range spec.AddCommunity {
		sets = append(sets, routemap.AddCommunity[int](c))
	}

	return &routemap.Entry[int]{
		Order: spec.Order, State: state, Matches: matches, Sets: sets, Flow: routemap.Exit(),
	}, nil
}

// modifier builds the raw network.Modifier the diff step applies to the
// "after" network.
func (d *DiffStep) modifier() (network.Modifier[int], error) {
	switch {
	case d.LinkWeight != nil:
		return &network.LinkWeightModifier[int]{A: d.LinkWeight.A, B: d.LinkWeight.B, Weight: d.LinkWeight.Weight}, nil
	case d.Area != nil:
		return &network.AreaModifier[int]{A: d.Area.A, B: d.Area.B, Area: d.Area.Area}, nil
	case d.Session != nil:
		aType, err := parseSessionType(d.Session.AType)
		if err != nil {
			return nil, err
		}
		bType, err := parseSessionType(d.Session.BType)
		if err != nil {
			return nil, err
		}
		return &network.SessionModifier[int]{U: d.Session.A, V: d.Session.B, UType: aType, VType: bType}, nil
	case d.RouteMapEntry != nil:
		entry, err := buildEntry(d.RouteMapEntry)
		if err != nil {
			return nil, err
		}
		spec := d.RouteMapEntry
		return &network.RouteMapEntryModifier[int]{
			Router: spec.Router, Peer: spec.Peer, Outbound: spec.Outbound,
			Insert: true, EntryOrder: spec.Order, Entry: entry,
		}, nil
	case d.Advertise != nil:
		adv := d.Advertise
		route := &bgp.Route[int]{Prefix: adv.Prefix, NextHop: adv.NextHop, ASPath: adv.ASPath, LocalPref: adv.LocalPref}
		return &network.AdvertiseRouteModifier[int]{Router: adv.Router, Route: route}, nil
	case d.Withdraw != nil:
		return &network.WithdrawRouteModifier[int]{Router: d.Withdraw.Router, Prefix: d.Withdraw.Prefix}, nil
	default:
		return nil, fmt.Errorf("scenario: diff step carries no modifier")
	}
}

func parseDiffKind(s string) (decompose.DiffKind, error) {
	switch s {
	case "igp_only":
		return decompose.IGPOnly, nil
	case "bgp_only":
		return decompose.BGPOnly, nil
	case "composite":
		return decompose.Composite, nil
	default:
		return 0, fmt.Errorf("scenario: unknown diff kind %q", s)
	}
}

// BuildAfter builds the before network's topology again and applies every
// diff step's modifier to it, returning the resulting "after" network.
func (s *Scenario) BuildAfter() (*network.Network[int], error) {
	after, err := s.Build()
	if err != nil {
		return nil, err
	}
	for i, step := range s.Diff {
		mod, err := step.modifier()
		if err != nil {
			return nil, fmt.Errorf("scenario: diff step %d: %w", i, err)
		}
		if err := after.ApplyModifier(mod); err != nil {
			return nil, fmt.Errorf("scenario: applying diff step %d: %w", i, err)
		}
	}
	return after, nil
}

// DiffEntries converts the scenario's diff steps into decompose.DiffEntry
// values, re-deriving a fresh (non-side-effecting) copy of each modifier
// for the compiler to wrap.
func (s *Scenario) DiffEntries() ([]decompose.DiffEntry[int], error) {
	entries := make([]decompose.DiffEntry[int], 0, len(s.Diff))
	for i, step := range s.Diff {
		kind, err := parseDiffKind(step.Kind)
		if err != nil {
			return nil, fmt.Errorf("scenario: diff step %d: %w", i, err)
		}
		mod, err := step.modifier()
		if err != nil {
			return nil, fmt.Errorf("scenario: diff step %d: %w", i, err)
		}
		entries = append(entries, decompose.DiffEntry[int]{Kind: kind, Modifier: mod, Prefixes: step.Prefixes})
	}
	return entries, nil
}

// InternalRouters returns the ids of every internal router in the
// scenario's topology, in declaration order.
func (s *Scenario) InternalRouters() []int {
	var ids []int
	for _, r := range s.Routers {
		if r.Kind == "internal" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// CheckReachability resolves net's forwarding state and evaluates a
// Reachable policy for every prefix at CheckRouters (or every internal
// router, if unset), reporting the first violation found (if any).
func (s *Scenario) CheckReachability(net *network.Network[int]) (bool, *invariant.Violation[int]) {
	routers := s.CheckRouters
	if len(routers) == 0 {
		routers = s.InternalRouters()
	}
	fw := forwarding.Resolve(net)
	spec := invariant.ReachabilityOnly(fw, routers)
	checker := invariant.NewChecker(spec)
	return checker.Step(fw)
}
