package queue

import (
	"container/heap"
	"sort"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"gonum.org/v1/gonum/stat/distuv"
)

// GeoParams shapes the geo-aware variant of spec.md §4.D.3: QueuingAlpha/
// QueuingBeta are the Beta distribution's shape parameters for the
// per-hop queuing delay, and CollisionPenalty enforces the same
// same-session ordering guarantee as LatencyPriority.
type GeoParams struct {
	QueuingAlpha, QueuingBeta float64
	QueuingScale             float64
	CollisionPenalty         float64
}

// GeoAware schedules events by the physical propagation delay of the IGP
// path toward the destination (fiber-speed-of-light link transit, summed
// over the path) plus a Beta-distributed queuing delay and a fixed
// processing delay at every hop. Paths are cached per (from, to) and
// invalidated by UpdateParams.
type GeoAware[P comparable] struct {
	h        timeHeap[P]
	lastTime map[sessionKey]float64
	clock    float64
	hasClock bool
	seq      int64

	params  GeoParams
	routers RouterParams
	topo    Topology

	pathCache map[sessionKey][]int
}

// NewGeoAware constructs an empty geo-aware queue.
func NewGeoAware[P comparable](params GeoParams) *GeoAware[P] {
	return &GeoAware[P]{
		lastTime:  make(map[sessionKey]float64),
		params:    params,
		pathCache: make(map[sessionKey][]int),
	}
}

func (q *GeoAware[P]) Push(event bgp.Event[P], routers RouterParams, topo Topology) {
	if routers != nil {
		q.routers = routers
	}
	if topo != nil {
		q.topo = topo
	}
	key := sessionKey{from: event.From, to: event.To}

	delay := q.propagationDelay(key)

	base := 0.0
	if q.hasClock {
		base = q.clock
	}
	scheduled := base + delay
	if prior, seen := q.lastTime[key]; seen && scheduled <= prior {
		scheduled = prior + q.params.CollisionPenalty
	}
	q.lastTime[key] = scheduled

	event.Time = scheduled
	heap.Push(&q.h, item[P]{event: event, seq: q.seq})
	q.seq++
}

// propagationDelay resolves (from cache, or by recursive next-hop
// following with a loop guard) the physical path from key.from to key.to
// and sums fiber transit, per-hop queuing delay and per-router processing
// delay along it. An unreachable destination contributes only the
// destination's own processing delay.
func (q *GeoAware[P]) propagationDelay(key sessionKey) float64 {
	path, cached := q.pathCache[key]
	if !cached {
		path = q.resolvePath(key.from, key.to)
		q.pathCache[key] = path
	}
	if len(path) < 2 {
		return q.processingDelay(key.to)
	}

	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		u, v := path[i], path[i+1]
		if d, ok := q.topo.LinkDelay(u, v); ok {
			total += d
		}
		total += q.queuingDelay()
		total += q.processingDelay(v)
	}
	return total
}

// resolvePath follows IGP next hops from 'from' toward 'to' one hop at a
// time, breaking ties between equal-cost next hops by smallest router id
// for determinism, and stops with a truncated path if a cycle is detected.
func (q *GeoAware[P]) resolvePath(from, to int) []int {
	if q.topo == nil || from == to {
		return []int{from}
	}
	path := []int{from}
	visited := map[int]bool{from: true}
	current := from
	for current != to {
		hops := q.topo.NextHops(current, to)
		if len(hops) == 0 {
			return path // black hole; caller falls back to destination-only delay
		}
		sort.Ints(hops)
		next := hops[0]
		if visited[next] {
			return path // loop guard
		}
		path = append(path, next)
		visited[next] = true
		current = next
	}
	return path
}

func (q *GeoAware[P]) queuingDelay() float64 {
	return distuv.Beta{Alpha: q.params.QueuingAlpha, Beta: q.params.QueuingBeta}.Rand() * q.params.QueuingScale
}

func (q *GeoAware[P]) processingDelay(router int) float64 {
	if p, ok := q.routers[router]; ok {
		return p.ProcessingDelay
	}
	return 0
}

func (q *GeoAware[P]) Pop() (bgp.Event[P], bool) {
	if q.h.Len() == 0 {
		var zero bgp.Event[P]
		return zero, false
	}
	it := heap.Pop(&q.h).(item[P])
	q.clock = it.event.Time
	q.hasClock = true
	return it.event, true
}

func (q *GeoAware[P]) Peek() (bgp.Event[P], bool) {
	if q.h.Len() == 0 {
		var zero bgp.Event[P]
		return zero, false
	}
	return q.h[0].event, true
}

func (q *GeoAware[P]) Len() int { return q.h.Len() }

func (q *GeoAware[P]) IsEmpty() bool { return q.h.Len() == 0 }

func (q *GeoAware[P]) Clear() {
	q.h = nil
	q.lastTime = make(map[sessionKey]float64)
	q.pathCache = make(map[sessionKey][]int)
	q.clock = 0
	q.hasClock = false
}

// UpdateParams invalidates the cached paths and refreshes the router and
// topology inputs used to recompute them, per spec.md §4.D.3.
func (q *GeoAware[P]) UpdateParams(routers RouterParams, topo Topology) {
	q.routers = routers
	q.topo = topo
	q.pathCache = make(map[sessionKey][]int)
}

func (q *GeoAware[P]) GetTime() (float64, bool) {
	return q.clock, q.hasClock
}
