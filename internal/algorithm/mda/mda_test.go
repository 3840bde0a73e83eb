package mda

import (
	"testing"
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/container"
	"github.com/netreach/paris-traceroute/internal/probe"
)

type fakeHandle struct {
	events   []any
	sends    int
	finished bool
}

func (f *fakeHandle) SendProbe(p *probe.Probe, timeout time.Duration) { f.sends++ }
func (f *fakeHandle) Emit(sub any)                                    { f.events = append(f.events, sub) }
func (f *fakeHandle) Finish()                                         { f.finished = true }

func addr(t *testing.T, s string) address.Address {
	t.Helper()
	a, err := address.FromString(s)
	if err != nil {
		t.Fatalf("address.FromString: %v", err)
	}
	return a
}

func newTestState(t *testing.T) *state {
	t.Helper()
	return &state{
		opts: Options{
			Method: probe.MethodUDP, Src: addr(t, "192.0.2.1"), Dst: addr(t, "203.0.113.9"),
			MaxTTL: 30, ProbeTimeout: time.Second, BaseSrcPort: 33456, DstPort: 33457,
		},
		alpha:   DefaultAlpha,
		lattice: container.NewLattice[NodeKey, Node](),
		owner:   make(map[*probe.Probe]*confluence),
	}
}

// TestMDADiamondResolutionAttributesEdgesToCorrectPredecessor covers
// spec.md §8 scenario 3: hop 4 observes {A,B}; under A, hop 5 is only X;
// under B, hop 5 is {X,Y}. The lattice must contain A->X, B->X, B->Y and
// must NOT contain A->Y.
func TestMDADiamondResolutionAttributesEdgesToCorrectPredecessor(t *testing.T) {
	st := newTestState(t)
	h := &fakeHandle{}

	p3Key := NodeKey{TTL: 3, Addr: addr(t, "198.51.100.3")}
	st.lattice.AddNode(p3Key, Node{Key: p3Key})
	p3 := &confluence{selfNode: p3Key, ttl: 4, interfaces: make(map[address.Address]*confluence), usedTags: make(map[uint16]bool)}
	st.all = []*confluence{p3}

	addrA := addr(t, "198.51.100.4")
	addrB := addr(t, "198.51.100.5")
	addrX := addr(t, "198.51.100.6")
	addrY := addr(t, "198.51.100.7")

	onReply(h, st, p3, 1, probe.Flow{}, addrA, 0)
	onReply(h, st, p3, 2, probe.Flow{}, addrB, 0)

	childA := p3.interfaces[addrA]
	childB := p3.interfaces[addrB]
	if childA == nil || childB == nil {
		t.Fatalf("expected both A and B to be discovered under hop 4, got A=%v B=%v", childA, childB)
	}

	// Replay through A: only X appears.
	onReply(h, st, childA, 3, probe.Flow{}, addrX, 0)
	// Replay through B: both X and Y appear.
	onReply(h, st, childB, 4, probe.Flow{}, addrX, 0)
	onReply(h, st, childB, 5, probe.Flow{}, addrY, 0)

	_, idxA, _ := st.lattice.Find(NodeKey{TTL: 4, Addr: addrA})
	_, idxB, _ := st.lattice.Find(NodeKey{TTL: 4, Addr: addrB})
	_, idxX, _ := st.lattice.Find(NodeKey{TTL: 5, Addr: addrX})
	_, idxY, _ := st.lattice.Find(NodeKey{TTL: 5, Addr: addrY})

	if !st.lattice.HasEdge(idxA, idxX) {
		t.Errorf("missing edge A->X")
	}
	if !st.lattice.HasEdge(idxB, idxX) {
		t.Errorf("missing edge B->X")
	}
	if !st.lattice.HasEdge(idxB, idxY) {
		t.Errorf("missing edge B->Y")
	}
	if st.lattice.HasEdge(idxA, idxY) {
		t.Errorf("unexpected edge A->Y: flows replayed through A never reached Y")
	}
}

// TestMDANewLinkEmittedOnlyOnce covers spec.md §4.6 point 3: the same
// edge observed twice (two flows through B both landing on X) emits
// MDA_NEW_LINK exactly once.
func TestMDANewLinkEmittedOnlyOnce(t *testing.T) {
	st := newTestState(t)
	h := &fakeHandle{}

	p3Key := NodeKey{TTL: 3, Addr: addr(t, "198.51.100.3")}
	st.lattice.AddNode(p3Key, Node{Key: p3Key})
	p3 := &confluence{selfNode: p3Key, ttl: 4, interfaces: make(map[address.Address]*confluence), usedTags: make(map[uint16]bool)}
	st.all = []*confluence{p3}

	addrB := addr(t, "198.51.100.5")
	onReply(h, st, p3, 1, probe.Flow{}, addrB, 0)

	childB := p3.interfaces[addrB]
	addrX := addr(t, "198.51.100.6")
	onReply(h, st, childB, 2, probe.Flow{}, addrX, 0)
	onReply(h, st, childB, 3, probe.Flow{}, addrX, 0) // same edge again, via a second flow

	newLinks := 0
	for _, ev := range h.events {
		if nl, ok := ev.(NewLinkEvent); ok && nl.To.Equal(addrX) {
			newLinks++
		}
	}
	if newLinks != 1 {
		t.Fatalf("MDA_NEW_LINK for B->X emitted %d times, want 1", newLinks)
	}
}

// TestMDASaturationMonotonicity covers spec.md §8's MDA saturation
// monotonicity invariant: a confluence stays saturated once marked done,
// unless a genuinely new predecessor interface is discovered.
func TestMDASaturationMonotonicity(t *testing.T) {
	st := newTestState(t)
	h := &fakeHandle{}

	pKey := NodeKey{TTL: 2, Addr: addr(t, "198.51.100.2")}
	st.lattice.AddNode(pKey, Node{Key: pKey})
	c := &confluence{selfNode: pKey, ttl: 3, interfaces: make(map[address.Address]*confluence), usedTags: make(map[uint16]bool)}
	st.all = []*confluence{c}

	known := addr(t, "198.51.100.10")
	onReply(h, st, c, 1, probe.Flow{}, known, 0) // first sighting, establishes the known interface
	c.done = true               // pretend the stopping rule was satisfied afterward

	onReply(h, st, c, 2, probe.Flow{}, known, 0) // a second flow lands on the same, already-known interface
	if !c.done {
		t.Fatalf("confluence un-saturated by a reply from an already-known interface")
	}

	fresh := addr(t, "198.51.100.11")
	onReply(h, st, c, 2, probe.Flow{}, fresh, 0)
	if c.done {
		t.Fatalf("confluence stayed saturated despite a brand-new predecessor interface")
	}
}
