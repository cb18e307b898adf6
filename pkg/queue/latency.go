package queue

import (
	"container/heap"

	"github.com/nsg-ethz/chameleon/pkg/bgp"
	"gonum.org/v1/gonum/stat/distuv"
)

// LatencyParams shapes the Beta-distributed per-session delay of spec.md
// §4.D.2: Alpha/Beta are the distribution's shape parameters, Scale
// stretches the [0,1] draw to a virtual-time unit, SerializationPenalty is a
// fixed per-event cost, and CollisionPenalty is added when a session's
// events would otherwise cross.
type LatencyParams struct {
	Alpha, Beta          float64
	Scale                float64
	SerializationPenalty float64
	CollisionPenalty     float64
}

// LatencyPriority schedules events by a per-(source,destination) session
// delay, enforcing that events on the same session are never delivered out
// of the order they were enqueued (spec.md §5 "within a session").
type LatencyPriority[P comparable] struct {
	h        timeHeap[P]
	lastTime map[sessionKey]float64
	clock    float64
	hasClock bool
	seq      int64
	params   LatencyParams
	routers  RouterParams
}

// NewLatencyPriority constructs an empty latency-priority queue.
func NewLatencyPriority[P comparable](params LatencyParams) *LatencyPriority[P] {
	return &LatencyPriority[P]{
		lastTime: make(map[sessionKey]float64),
		params:   params,
	}
}

func (q *LatencyPriority[P]) Push(event bgp.Event[P], routers RouterParams, _ Topology) {
	if routers != nil {
		q.routers = routers
	}
	key := sessionKey{from: event.From, to: event.To}

	base := 0.0
	if q.hasClock {
		base = q.clock
	}
	delay := distuv.Beta{Alpha: q.params.Alpha, Beta: q.params.Beta}.Rand()*q.params.Scale + q.params.SerializationPenalty
	if proc, ok := q.routers[event.To]; ok {
		delay += proc.ProcessingDelay
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

func (q *LatencyPriority[P]) Pop() (bgp.Event[P], bool) {
	if q.h.Len() == 0 {
		var zero bgp.Event[P]
		return zero, false
	}
	it := heap.Pop(&q.h).(item[P])
	q.clock = it.event.Time
	q.hasClock = true
	return it.event, true
}

func (q *LatencyPriority[P]) Peek() (bgp.Event[P], bool) {
	if q.h.Len() == 0 {
		var zero bgp.Event[P]
		return zero, false
	}
	return q.h[0].event, true
}

func (q *LatencyPriority[P]) Len() int { return q.h.Len() }

func (q *LatencyPriority[P]) IsEmpty() bool { return q.h.Len() == 0 }

func (q *LatencyPriority[P]) Clear() {
	q.h = nil
	q.lastTime = make(map[sessionKey]float64)
	q.clock = 0
	q.hasClock = false
}

// UpdateParams refreshes the per-router processing delays used by future
// pushes; the per-session Beta parameters are fixed at construction since
// they model session latency, not topology.
func (q *LatencyPriority[P]) UpdateParams(routers RouterParams, _ Topology) {
	q.routers = routers
}

func (q *LatencyPriority[P]) GetTime() (float64, bool) {
	return q.clock, q.hasClock
}
