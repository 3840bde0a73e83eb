// Package algorithm implements spec.md §4.4's algorithm runtime: a
// registry-free spawn/dispatch/free lifecycle around per-instance state,
// with a handler-facing API (SendProbe/Emit/Finish) so an algorithm never
// touches Network I/O or the reactor directly.
//
// Grounded on the teacher's internal/trace/tracer.go (the single type
// that used to own both per-hop state and the probing loop), split here
// into a generic runtime plus algorithm-specific Descriptors so
// traceroute and MDA can share one dispatch path.
package algorithm

import (
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/netio"
	"github.com/netreach/paris-traceroute/internal/probe"
)

// Handle is the handler-facing API spec.md §4.4 grants an algorithm's
// Init/HandleEvent callbacks: send a probe, emit a user-visible subevent,
// or declare this instance finished.
type Handle interface {
	SendProbe(p *probe.Probe, timeout time.Duration)
	Emit(sub any)
	Finish()
}

// Descriptor is the {name, init, handle_event, free} triple spec.md §4.4
// defines. State is opaque to the runtime: whatever Init returns is
// threaded back through HandleEvent and finally Free.
type Descriptor struct {
	Name        string
	Init        func(h Handle, opts any, skeleton *probe.Probe) any
	HandleEvent func(h Handle, state any, ev event.Event)
	Free        func(state any)
}

type instance struct {
	desc Descriptor
	state any
	dst   address.Address
}

// Runtime spawns and dispatches algorithm instances. It implements the
// Handler signature internal/event.Loop expects, so it is wired in as
// the reactor's single dispatch point; Conn is wired in as a Source.
type Runtime struct {
	conn *netio.Conn
	out  func(event.Event)

	instances map[int]*instance
	nextID    int
}

// NewRuntime builds a Runtime that sends probes through conn and forwards
// ALGORITHM_EVENT / ALGORITHM_HAS_TERMINATED events to out — in this
// module, internal/runner's handler, which records them in a
// result.Collector and passes them on to Options.OnEvent.
func NewRuntime(conn *netio.Conn, out func(event.Event)) *Runtime {
	return &Runtime{
		conn:      conn,
		out:       out,
		instances: make(map[int]*instance),
	}
}

// Spawn starts a new instance of desc with opts and an initial probe
// skeleton (a template the algorithm may clone per-probe field values
// from, e.g. the base flow identifier). Returns the instance id used to
// route subsequent PROBE_REPLY/PROBE_TIMEOUT events back to it.
func (rt *Runtime) Spawn(desc Descriptor, opts any, dst address.Address, skeleton *probe.Probe) int {
	id := rt.nextID
	rt.nextID++

	inst := &instance{desc: desc, dst: dst}
	rt.instances[id] = inst
	inst.state = desc.Init(&handle{rt: rt, id: id, dst: dst}, opts, skeleton)
	return id
}

// Stop force-terminates an instance without going through Finish — used
// when the caller abandons a run early (e.g. CLI cancellation).
func (rt *Runtime) Stop(id int) {
	inst, ok := rt.instances[id]
	if !ok {
		return
	}
	delete(rt.instances, id)
	inst.desc.Free(inst.state)
}

// Active reports how many instances are still running.
func (rt *Runtime) Active() int { return len(rt.instances) }

// HandleEvent is internal/event.Handler: it routes PROBE_REPLY and
// PROBE_TIMEOUT events to the instance that owns the underlying probe
// (via probe.Probe.InstanceID) and drops events for instances that have
// already finished, matching spec.md §7 "Unknown events are ignored by
// handlers."
func (rt *Runtime) HandleEvent(ev event.Event) {
	var id int
	switch ev.Kind {
	case event.KindProbeReply:
		pair, ok := ev.Payload.(netio.ReplyPair)
		if !ok {
			return
		}
		id = pair.Probe.InstanceID
	case event.KindProbeTimeout:
		p, ok := ev.Payload.(*probe.Probe)
		if !ok {
			return
		}
		id = p.InstanceID
	default:
		return
	}

	inst, ok := rt.instances[id]
	if !ok {
		return
	}
	inst.desc.HandleEvent(&handle{rt: rt, id: id, dst: inst.dst}, inst.state, ev)
}

func (rt *Runtime) finish(id int) {
	rt.out(event.Event{Kind: event.KindAlgorithmTerminated, InstanceID: id})
	if inst, ok := rt.instances[id]; ok {
		delete(rt.instances, id)
		inst.desc.Free(inst.state)
	}
}

// handle binds Handle's methods to one instance id.
type handle struct {
	rt  *Runtime
	id  int
	dst address.Address
}

func (h *handle) SendProbe(p *probe.Probe, timeout time.Duration) {
	p.InstanceID = h.id
	h.rt.conn.Send(p, h.dst, timeout)
}

func (h *handle) Emit(sub any) {
	h.rt.out(event.Event{Kind: event.KindAlgorithmEvent, InstanceID: h.id, Payload: sub})
}

func (h *handle) Finish() {
	h.rt.finish(h.id)
}
