package netio

import (
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/probe"
)

// Transmitter puts a composed probe packet on the wire toward dst. The
// production implementation (socket.go) holds the raw send sockets;
// tests substitute a fake that just records calls.
type Transmitter interface {
	Transmit(p *probe.Probe, dst address.Address) error
}

// Incoming is one datagram lifted off a receive socket and already
// decoded far enough to carry a Reply; socket.go's reader goroutines
// produce these without touching any Conn state, so Conn stays
// single-threaded.
type Incoming struct {
	Reply *probe.Reply
	Err   error
}

// ReplyPair is the KindProbeReply payload: the inbound Reply together
// with the Probe it was correlated to.
type ReplyPair struct {
	Probe *probe.Probe
	Reply *probe.Reply
}

// maxSendAttempts bounds the SendFailure retry policy (spec.md §7:
// "transient, retried up to N=3 with backoff").
const maxSendAttempts = 3

type queuedSend struct {
	probe   *probe.Probe
	dst     address.Address
	timeout time.Duration
	attempt int
	readyAt time.Time
}

// sendBackoff returns the delay before retrying a failed transmit, growing
// with the attempt number.
func sendBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 20 * time.Millisecond
}

// Conn is Network I/O: the in-flight table, the FIFO send queue governed
// by a rate limiter, and the channel fed by background socket readers.
// It implements event.Source so internal/event's reactor can drive it.
type Conn struct {
	tx       Transmitter
	table    *Table
	limiter  *RateLimiter
	queue    []queuedSend
	incoming chan Incoming
}

// NewConn builds a Conn around a Transmitter and a rate-limit raw value
// (see NewRateLimiter for its seconds-vs-milliseconds interpretation).
// The channel socket readers deliver into holds 256 datagrams; Deliver
// blocks once it is full.
func NewConn(tx Transmitter, rateLimitRaw float64) *Conn {
	return &Conn{
		tx:       tx,
		table:    NewTable(),
		limiter:  NewRateLimiter(rateLimitRaw),
		incoming: make(chan Incoming, 256),
	}
}

// Deliver is called by a socket reader goroutine for every datagram it
// decodes. It only ever writes to a channel, so it never races with the
// reactor goroutine that calls Poll.
func (c *Conn) Deliver(in Incoming) {
	c.incoming <- in
}

// IncomingChan exposes the channel a production reader goroutine selects
// on alongside socket readiness, for wiring into Loop.Wake.
func (c *Conn) IncomingChan() <-chan Incoming {
	return c.incoming
}

// Send enqueues p for transmission toward dst with the given per-probe
// timeout. The actual send happens during Poll, once the rate limiter
// grants a permit, preserving FIFO order among queued sends.
func (c *Conn) Send(p *probe.Probe, dst address.Address, timeout time.Duration) {
	c.queue = append(c.queue, queuedSend{probe: p, dst: dst, timeout: timeout})
}

// InFlight reports how many probes are awaiting a reply or timeout.
func (c *Conn) InFlight() int { return c.table.Len() }

// Unmatched reports how many received replies matched no in-flight probe.
func (c *Conn) Unmatched() int { return c.table.Unmatched() }

// Poll implements event.Source: it flushes as much of the send queue as
// the rate limiter currently allows, drains any buffered incoming
// datagrams and correlates them, and materializes PROBE_TIMEOUT events
// for anything whose deadline has passed.
func (c *Conn) Poll(now time.Time) []event.Event {
	var events []event.Event

	for len(c.queue) > 0 {
		qs := c.queue[0]
		if !qs.readyAt.IsZero() && now.Before(qs.readyAt) {
			break
		}
		if !c.limiter.Allow(now) {
			break
		}
		c.queue = c.queue[1:]
		qs.probe.SendTime = now
		if err := c.tx.Transmit(qs.probe, qs.dst); err != nil {
			qs.attempt++
			if qs.attempt < maxSendAttempts {
				qs.readyAt = now.Add(sendBackoff(qs.attempt))
				c.queue = append(c.queue, qs)
				continue
			}
			events = append(events, event.Event{
				Kind:    event.KindProbeTimeout,
				Payload: qs.probe,
				Err:     err,
			})
			continue
		}
		c.table.Register(qs.probe, qs.timeout, now)
	}

drainIncoming:
	for {
		select {
		case in := <-c.incoming:
			if in.Err != nil {
				continue
			}
			in.Reply.RecvTime = now
			if matched, ok := c.table.Correlate(in.Reply); ok {
				events = append(events, event.Event{
					Kind:    event.KindProbeReply,
					Payload: ReplyPair{Probe: matched, Reply: in.Reply},
				})
			}
		default:
			break drainIncoming
		}
	}

	for _, p := range c.table.PopExpired(now) {
		events = append(events, event.Event{Kind: event.KindProbeTimeout, Payload: p})
	}

	return events
}

// NextDeadline is the earlier of the next in-flight timeout and the next
// rate-limiter send permit, matching spec.md §4.3's wake computation.
func (c *Conn) NextDeadline() (time.Time, bool) {
	deadline, ok := c.table.NextDeadline()

	if len(c.queue) > 0 {
		if permit, permitOK := c.limiter.NextPermit(); permitOK {
			if !ok || permit.Before(deadline) {
				deadline, ok = permit, true
			}
		} else {
			// No send permit pending (no rate limit configured, or none
			// issued yet): the queue head is ready now, or once its retry
			// backoff elapses.
			ready := c.queue[0].readyAt
			if ready.IsZero() {
				ready = time.Now()
			}
			if !ok || ready.Before(deadline) {
				deadline, ok = ready, true
			}
		}

		if readyAt := c.queue[0].readyAt; !readyAt.IsZero() {
			if !ok || readyAt.Before(deadline) {
				deadline, ok = readyAt, true
			}
		}
	}

	return deadline, ok
}
