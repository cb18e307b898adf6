package liveadapter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
)

// encodeRoute renders a route into the flat string-field hash redis stores,
// the same shape the teacher's table entry types use for CONFIG_DB rows.
func encodeRoute[P comparable](route *bgp.Route[P], fromPeer int) map[string]interface{} {
	fields := map[string]interface{}{
		"next_hop":     strconv.Itoa(route.NextHop),
		"from_peer":    strconv.Itoa(fromPeer),
		"as_path":      joinInt32(route.ASPath),
		"weight":       strconv.Itoa(route.Weight),
		"cluster_list": joinInt(route.ClusterList),
	}
	if route.LocalPref != nil {
		fields["local_pref"] = strconv.Itoa(*route.LocalPref)
	}
	if route.MED != nil {
		fields["med"] = strconv.Itoa(*route.MED)
	}
	if len(route.Communities) > 0 {
		fields["communities"] = joinUint32(route.Communities)
	}
	if route.OriginatorID != nil {
		fields["originator_id"] = strconv.Itoa(*route.OriginatorID)
	}
	return fields
}

// decodeRoute is encodeRoute's inverse; prefixKey is supplied by the
// caller (the redis hash carries no prefix field of its own, since the
// key already encodes it).
func decodeRoute[P comparable](prefixKey P, vals map[string]string) (*bgp.Route[P], int, error) {
	nextHop, err := strconv.Atoi(vals["next_hop"])
	if err != nil {
		return nil, 0, fmt.Errorf("next_hop: %w", err)
	}
	fromPeer, _ := strconv.Atoi(vals["from_peer"])

	asPath, err := parseInt32List(vals["as_path"])
	if err != nil {
		return nil, 0, fmt.Errorf("as_path: %w", err)
	}
	clusterList, err := parseIntList(vals["cluster_list"])
	if err != nil {
		return nil, 0, fmt.Errorf("cluster_list: %w", err)
	}

	route := &bgp.Route[P]{
		Prefix:      prefixKey,
		NextHop:     nextHop,
		ASPath:      asPath,
		ClusterList: clusterList,
	}
	if v, ok := vals["weight"]; ok && v != "" {
		w, err := strconv.Atoi(v)
		if err != nil {
			return nil, 0, fmt.Errorf("weight: %w", err)
		}
		route.Weight = w
	}
	if v, ok := vals["local_pref"]; ok && v != "" {
		lp, err := strconv.Atoi(v)
		if err != nil {
			return nil, 0, fmt.Errorf("local_pref: %w", err)
		}
		route.LocalPref = &lp
	}
	if v, ok := vals["med"]; ok && v != "" {
		med, err := strconv.Atoi(v)
		if err != nil {
			return nil, 0, fmt.Errorf("med: %w", err)
		}
		route.MED = &med
	}
	if v, ok := vals["communities"]; ok && v != "" {
		comms, err := parseUint32List(v)
		if err != nil {
			return nil, 0, fmt.Errorf("communities: %w", err)
		}
		route.Communities = comms
	}
	if v, ok := vals["originator_id"]; ok && v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, 0, fmt.Errorf("originator_id: %w", err)
		}
		route.OriginatorID = &id
	}
	return route, fromPeer, nil
}

func joinInt32(xs []int32) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatInt(int64(x), 10)
	}
	return strings.Join(parts, ",")
}

func joinInt(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func joinUint32(xs []uint32) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatUint(uint64(x), 10)
	}
	return strings.Join(parts, ",")
}

func parseInt32List(s string) ([]int32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = int32(v)
	}
	return out, nil
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseUint32List(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}
