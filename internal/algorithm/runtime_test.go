package algorithm

import (
	"testing"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/netio"
	"github.com/netreach/paris-traceroute/internal/probe"
)

type fakeTx struct{ sent int }

func (f *fakeTx) Transmit(p *probe.Probe, dst address.Address) error {
	f.sent++
	return nil
}

type countingState struct {
	replies  int
	timeouts int
	freed    bool
}

func echoDescriptor() Descriptor {
	return Descriptor{
		Name: "echo",
		Init: func(h Handle, opts any, skeleton *probe.Probe) any {
			return &countingState{}
		},
		HandleEvent: func(h Handle, state any, ev event.Event) {
			st := state.(*countingState)
			switch ev.Kind {
			case event.KindProbeReply:
				st.replies++
				h.Emit("replied")
				h.Finish()
			case event.KindProbeTimeout:
				st.timeouts++
				h.Finish()
			}
		},
		Free: func(state any) {
			state.(*countingState).freed = true
		},
	}
}

func mustProbe(t *testing.T, tag uint16) *probe.Probe {
	t.Helper()
	src, _ := address.FromString("192.0.2.1")
	dst, _ := address.FromString("192.0.2.2")
	p, err := probe.Build(probe.Params{
		Method: probe.MethodUDP, Src: src, Dst: dst, TTL: 1,
		Flow: probe.Flow{SrcPort: 1, DstPort: 2}, Tag: tag,
	})
	if err != nil {
		t.Fatalf("probe.Build: %v", err)
	}
	return p
}

func TestRuntimeRoutesReplyToOwningInstanceAndFinishes(t *testing.T) {
	tx := &fakeTx{}
	conn := netio.NewConn(tx, 0)

	var outEvents []event.Event
	rt := NewRuntime(conn, func(ev event.Event) { outEvents = append(outEvents, ev) })

	dst, _ := address.FromString("192.0.2.2")
	id := rt.Spawn(echoDescriptor(), nil, dst, nil)

	if rt.Active() != 1 {
		t.Fatalf("Active() = %d, want 1", rt.Active())
	}

	p := mustProbe(t, 1)
	p.InstanceID = id

	rt.HandleEvent(event.Event{Kind: event.KindProbeReply, Payload: netio.ReplyPair{Probe: p, Reply: &probe.Reply{}}})

	if rt.Active() != 0 {
		t.Fatalf("Active() after Finish = %d, want 0", rt.Active())
	}

	var gotAlgEvent, gotTerminated bool
	for _, ev := range outEvents {
		switch ev.Kind {
		case event.KindAlgorithmEvent:
			gotAlgEvent = true
			if ev.InstanceID != id {
				t.Fatalf("ALGORITHM_EVENT instance id = %d, want %d", ev.InstanceID, id)
			}
		case event.KindAlgorithmTerminated:
			gotTerminated = true
		}
	}
	if !gotAlgEvent || !gotTerminated {
		t.Fatalf("out events = %+v, want one ALGORITHM_EVENT and one ALGORITHM_HAS_TERMINATED", outEvents)
	}
}

func TestRuntimeIgnoresEventsForUnknownInstance(t *testing.T) {
	tx := &fakeTx{}
	conn := netio.NewConn(tx, 0)
	rt := NewRuntime(conn, func(ev event.Event) {
		t.Fatalf("out() should not be called for an unknown instance, got %+v", ev)
	})

	p := mustProbe(t, 1)
	p.InstanceID = 999 // never spawned
	rt.HandleEvent(event.Event{Kind: event.KindProbeTimeout, Payload: p})
}

func TestRuntimeStopFreesWithoutEmittingEvents(t *testing.T) {
	tx := &fakeTx{}
	conn := netio.NewConn(tx, 0)
	var out []event.Event
	rt := NewRuntime(conn, func(ev event.Event) { out = append(out, ev) })

	dst, _ := address.FromString("192.0.2.2")
	id := rt.Spawn(echoDescriptor(), nil, dst, nil)
	rt.Stop(id)

	if rt.Active() != 0 {
		t.Fatalf("Active() after Stop = %d, want 0", rt.Active())
	}
	if len(out) != 0 {
		t.Fatalf("Stop emitted events = %+v, want none", out)
	}
}
