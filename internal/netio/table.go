// Package netio implements spec.md §4.2's Network I/O component: a raw
// send path, ICMPv4/ICMPv6 receive sockets, correlation of inbound
// datagrams to in-flight probes by fingerprint, a timeout min-heap, and a
// FIFO outbound rate limiter. It exposes an event.Source so the reactor
// in internal/event can drive it without any locking.
//
// Grounded on the teacher's internal/probe/icmp.go and udp.go (ICMP
// listen-socket setup, TTL/hop-limit control, ICMP error parsing to
// recover the original probe), restructured so correlation lives in a
// plain synchronous Table independent of the actual sockets — the
// sockets just feed it bytes.
package netio

import (
	"container/heap"
	"time"

	"github.com/netreach/paris-traceroute/internal/probe"
)

// Table owns the in-flight probe set: fingerprint -> (probe, deadline).
// It is not safe for concurrent use; like the rest of this system it is
// driven from the single reactor goroutine.
type Table struct {
	byFingerprint map[probe.Fingerprint]*entry
	heap          deadlineHeap
	unmatched     int // replies received that matched no in-flight probe
}

// NewTable builds an empty in-flight table.
func NewTable() *Table {
	return &Table{byFingerprint: make(map[probe.Fingerprint]*entry)}
}

// Register adds p to the in-flight table with an absolute deadline of
// now+timeout. A probe already registered under the same fingerprint is
// replaced (callers must pick fingerprints that make that impossible for
// probes in flight at the same time; MDA's flow-id selection guarantees
// this per predecessor).
func (t *Table) Register(p *probe.Probe, timeout time.Duration, now time.Time) {
	e := &entry{probe: p, deadline: now.Add(timeout)}
	t.byFingerprint[p.Fingerprint] = e
	heap.Push(&t.heap, e)
}

// Correlate looks reply up by fingerprint. On a match, the probe is
// dequeued from both the map and the heap and returned; on no match,
// Correlate increments the unmatched counter and returns ok=false
// (spec.md §4.2: "Unmatched replies are dropped with a counter
// increment").
func (t *Table) Correlate(reply *probe.Reply) (*probe.Probe, bool) {
	e, ok := t.byFingerprint[reply.Fingerprint]
	if !ok {
		t.unmatched++
		return nil, false
	}
	t.remove(e)
	return e.probe, true
}

// PopExpired removes and returns every probe whose deadline is <= now,
// in deadline order.
func (t *Table) PopExpired(now time.Time) []*probe.Probe {
	var out []*probe.Probe
	for t.heap.Len() > 0 && !t.heap[0].deadline.After(now) {
		e := heap.Pop(&t.heap).(*entry)
		delete(t.byFingerprint, e.probe.Fingerprint)
		out = append(out, e.probe)
	}
	return out
}

// NextDeadline reports the earliest outstanding timeout, if any.
func (t *Table) NextDeadline() (time.Time, bool) {
	if t.heap.Len() == 0 {
		return time.Time{}, false
	}
	return t.heap[0].deadline, true
}

// Drain empties the table unconditionally and returns the probes it held.
// The event loop does not call it when it terminates.
func (t *Table) Drain() []*probe.Probe {
	out := make([]*probe.Probe, 0, len(t.byFingerprint))
	for t.heap.Len() > 0 {
		e := heap.Pop(&t.heap).(*entry)
		out = append(out, e.probe)
	}
	t.byFingerprint = make(map[probe.Fingerprint]*entry)
	return out
}

// Len reports the number of in-flight probes.
func (t *Table) Len() int { return len(t.byFingerprint) }

// Unmatched reports how many inbound replies matched no in-flight probe.
func (t *Table) Unmatched() int { return t.unmatched }

func (t *Table) remove(e *entry) {
	delete(t.byFingerprint, e.probe.Fingerprint)
	if e.index >= 0 {
		heap.Remove(&t.heap, e.index)
	}
}
