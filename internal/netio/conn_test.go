package netio

import (
	"errors"
	"testing"
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/probe"
)

var errTransmitFailed = errors.New("transmit failed")

type fakeTransmitter struct {
	sent []time.Time
}

func (f *fakeTransmitter) Transmit(p *probe.Probe, dst address.Address) error {
	f.sent = append(f.sent, p.SendTime)
	return nil
}

// failingTransmitter fails the first failCount calls, then succeeds.
type failingTransmitter struct {
	failCount int
	calls     int
}

func (f *failingTransmitter) Transmit(p *probe.Probe, dst address.Address) error {
	f.calls++
	if f.calls <= f.failCount {
		return errTransmitFailed
	}
	return nil
}

func addr(t *testing.T, s string) address.Address {
	t.Helper()
	a, err := address.FromString(s)
	if err != nil {
		t.Fatalf("address.FromString: %v", err)
	}
	return a
}

func TestConnPollFlushesQueueAndRegistersProbe(t *testing.T) {
	tx := &fakeTransmitter{}
	c := NewConn(tx, 0) // unrated
	p, _ := probe.Build(probe.Params{
		Method: probe.MethodUDP, Src: addr(t, "192.0.2.1"), Dst: addr(t, "192.0.2.2"),
		TTL: 1, Flow: probe.Flow{SrcPort: 1, DstPort: 2}, Tag: 1,
	})
	c.Send(p, addr(t, "192.0.2.2"), time.Second)

	events := c.Poll(time.Unix(100, 0))
	if len(tx.sent) != 1 {
		t.Fatalf("Transmit called %d times, want 1", len(tx.sent))
	}
	if c.InFlight() != 1 {
		t.Fatalf("InFlight() = %d, want 1", c.InFlight())
	}
	if len(events) != 0 {
		t.Fatalf("Poll produced %d events on send-only pass, want 0", len(events))
	}
}

func TestConnPollDeliversProbeReplyOnCorrelation(t *testing.T) {
	tx := &fakeTransmitter{}
	c := NewConn(tx, 0)
	p, _ := probe.Build(probe.Params{
		Method: probe.MethodUDP, Src: addr(t, "192.0.2.1"), Dst: addr(t, "192.0.2.2"),
		TTL: 1, Flow: probe.Flow{SrcPort: 1, DstPort: 2}, Tag: 0xAAAA,
	})
	c.Send(p, addr(t, "192.0.2.2"), time.Second)
	c.Poll(time.Unix(100, 0))

	c.Deliver(Incoming{Reply: &probe.Reply{Fingerprint: p.Fingerprint}})

	events := c.Poll(time.Unix(100, 1))
	if len(events) != 1 || events[0].Kind != event.KindProbeReply {
		t.Fatalf("events = %+v, want one PROBE_REPLY", events)
	}
	pair := events[0].Payload.(ReplyPair)
	if pair.Probe != p {
		t.Fatalf("ReplyPair.Probe = %v, want original probe", pair.Probe)
	}
	if c.InFlight() != 0 {
		t.Fatalf("InFlight() after correlation = %d, want 0", c.InFlight())
	}
}

func TestConnPollDeliversProbeTimeoutOnExpiry(t *testing.T) {
	tx := &fakeTransmitter{}
	c := NewConn(tx, 0)
	p, _ := probe.Build(probe.Params{
		Method: probe.MethodUDP, Src: addr(t, "192.0.2.1"), Dst: addr(t, "192.0.2.2"),
		TTL: 1, Flow: probe.Flow{SrcPort: 1, DstPort: 2}, Tag: 1,
	})
	c.Send(p, addr(t, "192.0.2.2"), 50*time.Millisecond)
	base := time.Unix(100, 0)
	c.Poll(base)

	events := c.Poll(base.Add(100 * time.Millisecond))
	if len(events) != 1 || events[0].Kind != event.KindProbeTimeout {
		t.Fatalf("events = %+v, want one PROBE_TIMEOUT", events)
	}
}

func TestConnRateLimiterDelaysQueuedSends(t *testing.T) {
	tx := &fakeTransmitter{}
	c := NewConn(tx, 500) // 500ms between sends
	mk := func(tag uint16) *probe.Probe {
		p, _ := probe.Build(probe.Params{
			Method: probe.MethodUDP, Src: addr(t, "192.0.2.1"), Dst: addr(t, "192.0.2.2"),
			TTL: 1, Flow: probe.Flow{SrcPort: 1, DstPort: 2}, Tag: tag,
		})
		return p
	}
	c.Send(mk(1), addr(t, "192.0.2.2"), time.Second)
	c.Send(mk(2), addr(t, "192.0.2.2"), time.Second)

	base := time.Unix(200, 0)
	c.Poll(base) // first send allowed immediately
	if len(tx.sent) != 1 {
		t.Fatalf("after first Poll, sent = %d, want 1", len(tx.sent))
	}

	c.Poll(base.Add(100 * time.Millisecond)) // too soon for the second
	if len(tx.sent) != 1 {
		t.Fatalf("second send fired too early: sent = %d, want 1", len(tx.sent))
	}

	c.Poll(base.Add(600 * time.Millisecond)) // interval elapsed
	if len(tx.sent) != 2 {
		t.Fatalf("after interval elapsed, sent = %d, want 2", len(tx.sent))
	}
}

func TestConnPollRetriesTransientSendFailure(t *testing.T) {
	tx := &failingTransmitter{failCount: 2}
	c := NewConn(tx, 0)
	p, _ := probe.Build(probe.Params{
		Method: probe.MethodUDP, Src: addr(t, "192.0.2.1"), Dst: addr(t, "192.0.2.2"),
		TTL: 1, Flow: probe.Flow{SrcPort: 1, DstPort: 2}, Tag: 1,
	})
	c.Send(p, addr(t, "192.0.2.2"), time.Second)

	base := time.Unix(100, 0)
	events := c.Poll(base)
	if len(events) != 0 {
		t.Fatalf("first attempt: events = %+v, want none (still retrying)", events)
	}
	if c.InFlight() != 0 {
		t.Fatalf("InFlight() = %d, want 0 while retries pending", c.InFlight())
	}

	events = c.Poll(base.Add(100 * time.Millisecond))
	if len(events) != 0 {
		t.Fatalf("second attempt: events = %+v, want none", events)
	}

	c.Poll(base.Add(200 * time.Millisecond))
	if c.InFlight() != 1 {
		t.Fatalf("InFlight() after successful retry = %d, want 1", c.InFlight())
	}
	if tx.calls != 3 {
		t.Fatalf("Transmit called %d times, want 3", tx.calls)
	}
}

func TestConnPollGivesUpAfterMaxSendAttempts(t *testing.T) {
	tx := &failingTransmitter{failCount: 10}
	c := NewConn(tx, 0)
	p, _ := probe.Build(probe.Params{
		Method: probe.MethodUDP, Src: addr(t, "192.0.2.1"), Dst: addr(t, "192.0.2.2"),
		TTL: 1, Flow: probe.Flow{SrcPort: 1, DstPort: 2}, Tag: 1,
	})
	c.Send(p, addr(t, "192.0.2.2"), time.Second)

	base := time.Unix(100, 0)
	var events []event.Event
	for i := 0; i < maxSendAttempts; i++ {
		events = c.Poll(base.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	if len(events) != 1 || events[0].Kind != event.KindProbeTimeout {
		t.Fatalf("events = %+v, want one PROBE_TIMEOUT after exhausting retries", events)
	}
	if tx.calls != maxSendAttempts {
		t.Fatalf("Transmit called %d times, want %d", tx.calls, maxSendAttempts)
	}
}
