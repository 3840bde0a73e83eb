// Package mda implements spec.md §4.6's Multipath Detection Algorithm as an
// algorithm.Descriptor: per-TTL confluences (a predecessor interface and
// the hop below it) that enumerate next-hop interfaces by replaying flows
// until the stopping rule is satisfied, resolving diamonds by attributing
// each replayed flow back to the predecessor that verified it.
//
// Grounded on the teacher's internal/trace package for the overall
// Descriptor/runtime wiring (shared with internal/algorithm/traceroute)
// and on internal/container.Lattice for the topology itself; the stopping
// rule lives in stopping.go.
package mda

import (
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/algorithm"
	"github.com/netreach/paris-traceroute/internal/container"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/netio"
	"github.com/netreach/paris-traceroute/internal/probe"
)

// Options configures one MDA run.
type Options struct {
	Method       probe.Method
	IPv6         bool
	Src, Dst     address.Address
	MaxTTL       int
	Alpha        float64 // confidence parameter; 0 means DefaultAlpha
	ProbeTimeout time.Duration
	BaseSrcPort  uint16 // source port of every probe (flows differ by Tag); DstPort stays fixed per spec.md §6
	DstPort      uint16
}

// NodeKey identifies one lattice node: an interface observed at a TTL, or
// (if Star is true) one unresponsive-hop sentinel. StarSeq disambiguates
// sentinels so distinct stars are always distinct nodes (spec.md §4.6
// point 4), even when they share a TTL and predecessor.
type NodeKey struct {
	TTL     int
	Addr    address.Address
	Star    bool
	StarSeq int
}

// Node is the lattice's per-interface payload. It carries nothing beyond
// its own key; the confluence tree alongside the lattice holds everything
// mutable (flow sets, probe counts, saturation).
type Node struct {
	Key NodeKey
}

// NewLinkEvent is the ALGORITHM_EVENT payload for MDA_NEW_LINK, emitted
// the first time an edge (u@t, v@t+1) is observed (spec.md §4.6 point 3).
type NewLinkEvent struct {
	FromTTL int
	From    address.Address
	FromIsRoot bool

	ToTTL  int
	To     address.Address
	ToStar bool

	// RTT is the round-trip time of the probe that discovered this edge;
	// zero for star edges, which have no reply to time.
	RTT time.Duration

	// Flow and Tag identify the probe that discovered this edge, for
	// result.Entry's src_port/dst_port/flow_id fields (spec.md §6).
	Flow probe.Flow
	Tag  uint16
}

// confluence tracks one (predecessor, ttl) pair's probing state: the set
// of next-hop interfaces discovered below predecessor at ttl, the flows
// already tried, and the pool of flows inherited from the parent
// confluence that are admissible here (verified, at ttl-1, to transit
// through this confluence's own predecessor).
type confluence struct {
	selfNode NodeKey // this confluence's own node identity (the predecessor)
	ttl      int
	parent   *confluence // nil for the root (the source, before TTL 1)

	interfaces map[address.Address]*confluence // discovered children, keyed by interface
	pool       []uint16                        // admissible, not-yet-sent flows inherited from the parent
	usedTags   map[uint16]bool

	sent     int
	sinceNew int
	done     bool
}

type state struct {
	opts Options
	alpha float64

	lattice *container.Lattice[NodeKey, Node]
	root    *confluence
	all     []*confluence

	owner map[*probe.Probe]*confluence

	flowCounter  int
	globalStars  int
	destinationSeen bool
}

// Descriptor returns the MDA algorithm.Descriptor.
func Descriptor() algorithm.Descriptor {
	return algorithm.Descriptor{
		Name:        "mda",
		Init:        initInstance,
		HandleEvent: handleEvent,
		Free:        free,
	}
}

func initInstance(h algorithm.Handle, rawOpts any, _ *probe.Probe) any {
	opts := rawOpts.(Options)
	if opts.MaxTTL <= 0 {
		opts.MaxTTL = 30
	}
	if opts.Alpha <= 0 {
		opts.Alpha = DefaultAlpha
	}
	if opts.BaseSrcPort == 0 {
		opts.BaseSrcPort = 33456
	}
	if opts.DstPort == 0 {
		opts.DstPort = 33457
	}

	lattice := container.NewLattice[NodeKey, Node]()
	rootKey := NodeKey{TTL: 0, Addr: opts.Src}
	lattice.AddNode(rootKey, Node{Key: rootKey})

	root := &confluence{
		selfNode:   rootKey,
		ttl:        1,
		interfaces: make(map[address.Address]*confluence),
		usedTags:   make(map[uint16]bool),
	}

	st := &state{
		opts:    opts,
		alpha:   opts.Alpha,
		lattice: lattice,
		root:    root,
		all:     []*confluence{root},
		owner:   make(map[*probe.Probe]*confluence),
	}

	progress(h, st, root)
	return st
}

// progress sends the next probe a confluence needs, or delegates to its
// parent when it has exhausted its inherited flow pool (spec.md §4.6
// point 2: "selects flows from p's flow set until hop t under p is
// saturated" — when that set runs dry, p itself must be probed again to
// grow it).
func progress(h algorithm.Handle, st *state, c *confluence) {
	if c.done {
		return
	}
	k := len(c.interfaces)
	if Saturated(k, c.sent, c.sinceNew, st.alpha) {
		c.done = true
		checkTermination(h, st)
		return
	}

	if len(c.pool) > 0 {
		tag := c.pool[0]
		c.pool = c.pool[1:]
		sendProbe(h, st, c, tag)
		return
	}
	if c.parent == nil {
		sendProbe(h, st, c, nextFlow(c, &st.flowCounter))
		return
	}
	if c.parent.done {
		// The predecessor is saturated and will never verify another
		// flow through it; accept k as final rather than stall forever.
		c.done = true
		checkTermination(h, st)
		return
	}
	progress(h, st, c.parent)
}

func sendProbe(h algorithm.Handle, st *state, c *confluence, tag uint16) {
	c.usedTags[tag] = true
	p, err := probe.Build(probe.Params{
		Method: st.opts.Method,
		IPv6:   st.opts.IPv6,
		Src:    st.opts.Src,
		Dst:    st.opts.Dst,
		TTL:    uint8(c.ttl),
		Flow:   probe.Flow{SrcPort: st.opts.BaseSrcPort, DstPort: st.opts.DstPort},
		Tag:    tag,
	})
	if err != nil {
		h.Emit(err)
		h.Finish()
		return
	}
	st.owner[p] = c
	c.sent++
	h.SendProbe(p, st.opts.ProbeTimeout)
}

// nextFlow mints a fresh flow id for the root confluence by incrementing a
// counter and hashing, skipping ids already tried (spec.md §4.6
// "Flow-identifier selection").
func nextFlow(c *confluence, counter *int) uint16 {
	for {
		*counter++
		tag := hashFlow(*counter)
		if !c.usedTags[tag] {
			return tag
		}
	}
}

// hashFlow spreads a small monotonic counter across the 16-bit tag space
// with Knuth's multiplicative hash constant, so successive flow ids probe
// different regions of a router's ECMP hash rather than adjacent ones.
func hashFlow(n int) uint16 {
	return uint16((uint32(n) * 2654435761) >> 16)
}

func handleEvent(h algorithm.Handle, rawState any, ev event.Event) {
	st := rawState.(*state)

	switch ev.Kind {
	case event.KindProbeReply:
		pair := ev.Payload.(netio.ReplyPair)
		c, ok := st.owner[pair.Probe]
		if !ok {
			return
		}
		delete(st.owner, pair.Probe)
		rtt := pair.Reply.RecvTime.Sub(pair.Probe.SendTime)
		onReply(h, st, c, pair.Probe.Tag, pair.Probe.Flow, pair.Reply.From, rtt)

	case event.KindProbeTimeout:
		p := ev.Payload.(*probe.Probe)
		c, ok := st.owner[p]
		if !ok {
			return
		}
		delete(st.owner, p)
		onStar(h, st, c, p.Flow, p.Tag)
	}
}

func onReply(h algorithm.Handle, st *state, c *confluence, tag uint16, flow probe.Flow, from address.Address, rtt time.Duration) {
	c.sinceNew++

	child, exists := c.interfaces[from]
	if !exists {
		childKey := NodeKey{TTL: c.ttl, Addr: from}
		emitNewEdge(h, st, c.selfNode, childKey, rtt, flow, tag)

		child = &confluence{
			selfNode:   childKey,
			ttl:        c.ttl + 1,
			parent:     c,
			interfaces: make(map[address.Address]*confluence),
			usedTags:   make(map[uint16]bool),
		}
		st.all = append(st.all, child)
		c.interfaces[from] = child
		c.sinceNew = 0
		// A freshly discovered predecessor reopens a confluence that had
		// already been marked saturated (spec.md §8 "MDA saturation
		// monotonicity": saturated stays saturated *unless* a new
		// predecessor is discovered).
		c.done = false

		if from.Equal(st.opts.Dst) {
			st.destinationSeen = true
			child.done = true // nothing further to probe past the destination
		} else if child.ttl > st.opts.MaxTTL {
			child.done = true
		} else {
			child.pool = append(child.pool, tag)
		}
	} else if !child.done {
		child.pool = append(child.pool, tag)
	}

	progress(h, st, c)
	if !child.done {
		progress(h, st, child)
	}
	checkTermination(h, st)
}

func onStar(h algorithm.Handle, st *state, c *confluence, flow probe.Flow, tag uint16) {
	c.sinceNew++

	st.globalStars++
	starKey := NodeKey{TTL: c.ttl, Star: true, StarSeq: st.globalStars}
	emitNewEdge(h, st, c.selfNode, starKey, 0, flow, tag)

	progress(h, st, c)
	checkTermination(h, st)
}

func emitNewEdge(h algorithm.Handle, st *state, from, to NodeKey, rtt time.Duration, flow probe.Flow, tag uint16) {
	st.lattice.AddNode(to, Node{Key: to})
	_, fromIdx, _ := st.lattice.Find(from)
	_, toIdx, _ := st.lattice.Find(to)
	if st.lattice.HasEdge(fromIdx, toIdx) {
		return
	}
	st.lattice.AddEdge(fromIdx, toIdx)
	h.Emit(NewLinkEvent{
		FromTTL:    from.TTL,
		From:       from.Addr,
		FromIsRoot: from.TTL == 0,
		ToTTL:      to.TTL,
		To:         to.Addr,
		ToStar:     to.Star,
		RTT:        rtt,
		Flow:       flow,
		Tag:        tag,
	})
}

// checkTermination finishes the instance once every confluence is done —
// either saturated, or terminal because it sits past the destination or
// max_ttl (spec.md §4.6 "Termination").
func checkTermination(h algorithm.Handle, st *state) {
	for _, c := range st.all {
		if !c.done {
			return
		}
	}
	h.Finish()
}

func free(rawState any) {
	_ = rawState.(*state)
}
