// Package traceroute implements spec.md §4.5's classic Paris traceroute
// algorithm as an algorithm.Descriptor: a single fixed flow identifier
// carried across all TTLs so ECMP routers keep every probe on one path,
// incrementing only the TTL and a per-probe checksum nonce.
//
// Grounded on the teacher's internal/trace/tracer.go per-hop loop (hop
// ordering, star/reply accounting, termination conditions), rewritten
// against the algorithm runtime instead of owning its own goroutines.
package traceroute

import (
	"time"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/algorithm"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/netio"
	"github.com/netreach/paris-traceroute/internal/probe"
)

// Options configures one traceroute run.
type Options struct {
	Method             probe.Method
	IPv6               bool
	Src, Dst           address.Address
	FirstTTL           int
	MaxTTL             int
	NumProbesPerHop    int
	MaxConsecutiveStar int
	ProbeTimeout       time.Duration
	BaseTag            uint16 // first checksum nonce / ICMP sequence; incremented per probe

	SrcPort uint16 // fixed for the whole run
	DstPort uint16
}

// Outcome tags one probe's fate within a hop.
type Outcome int

const (
	OutcomeStar Outcome = iota
	OutcomeReply
)

// ReplyEvent is the ALGORITHM_EVENT payload for TRACEROUTE_REPLY.
type ReplyEvent struct {
	TTL  int
	From address.Address
	RTT  time.Duration
	Flow probe.Flow
	Tag  uint16
}

// StarEvent is the ALGORITHM_EVENT payload for TRACEROUTE_STAR.
type StarEvent struct {
	TTL  int
	Flow probe.Flow
	Tag  uint16
}

type hopOutcome struct {
	outcome Outcome
	from    address.Address
	rtt     time.Duration
}

type state struct {
	opts Options

	ttl                 int
	outcomesAtTTL       []hopOutcome
	consecutiveStarHops int
	nextTag             uint16
	destinationReached  bool
}

// Descriptor returns the traceroute algorithm.Descriptor.
func Descriptor() algorithm.Descriptor {
	return algorithm.Descriptor{
		Name:        "traceroute",
		Init:        initInstance,
		HandleEvent: handleEvent,
		Free:        free,
	}
}

func initInstance(h algorithm.Handle, rawOpts any, _ *probe.Probe) any {
	opts := rawOpts.(Options)
	if opts.FirstTTL <= 0 {
		opts.FirstTTL = 1
	}
	if opts.NumProbesPerHop <= 0 {
		opts.NumProbesPerHop = 3
	}
	if opts.MaxConsecutiveStar <= 0 {
		opts.MaxConsecutiveStar = 5
	}
	if opts.SrcPort == 0 {
		opts.SrcPort = 33456
	}
	if opts.DstPort == 0 {
		opts.DstPort = 33457
	}

	st := &state{opts: opts, ttl: opts.FirstTTL, nextTag: opts.BaseTag}
	sendHop(h, st)
	return st
}

func sendHop(h algorithm.Handle, st *state) {
	st.outcomesAtTTL = nil
	for i := 0; i < st.opts.NumProbesPerHop; i++ {
		p, err := probe.Build(probe.Params{
			Method: st.opts.Method,
			IPv6:   st.opts.IPv6,
			Src:    st.opts.Src,
			Dst:    st.opts.Dst,
			TTL:    uint8(st.ttl),
			Flow:   probe.Flow{SrcPort: st.opts.SrcPort, DstPort: st.opts.DstPort},
			Tag:    st.nextTag,
		})
		st.nextTag++
		if err != nil {
			h.Emit(err)
			h.Finish()
			return
		}
		h.SendProbe(p, st.opts.ProbeTimeout)
	}
}

func handleEvent(h algorithm.Handle, rawState any, ev event.Event) {
	st := rawState.(*state)

	switch ev.Kind {
	case event.KindProbeReply:
		pair := ev.Payload.(netio.ReplyPair)
		rtt := pair.Reply.RecvTime.Sub(pair.Probe.SendTime)
		st.outcomesAtTTL = append(st.outcomesAtTTL, hopOutcome{outcome: OutcomeReply, from: pair.Reply.From, rtt: rtt})
		h.Emit(ReplyEvent{TTL: st.ttl, From: pair.Reply.From, RTT: rtt, Flow: pair.Probe.Flow, Tag: pair.Probe.Tag})
		if pair.Reply.From.Equal(st.opts.Dst) {
			st.destinationReached = true
		}

	case event.KindProbeTimeout:
		st.outcomesAtTTL = append(st.outcomesAtTTL, hopOutcome{outcome: OutcomeStar})
		flow, tag := probe.Flow{SrcPort: st.opts.SrcPort, DstPort: st.opts.DstPort}, uint16(0)
		if p, ok := ev.Payload.(*probe.Probe); ok {
			flow, tag = p.Flow, p.Tag
		}
		h.Emit(StarEvent{TTL: st.ttl, Flow: flow, Tag: tag})
	}

	if len(st.outcomesAtTTL) < st.opts.NumProbesPerHop {
		return
	}

	allStars := true
	for _, o := range st.outcomesAtTTL {
		if o.outcome != OutcomeStar {
			allStars = false
			break
		}
	}
	if allStars {
		st.consecutiveStarHops++
	} else {
		st.consecutiveStarHops = 0
	}

	if st.destinationReached || st.consecutiveStarHops >= st.opts.MaxConsecutiveStar || st.ttl >= st.opts.MaxTTL {
		h.Finish()
		return
	}

	st.ttl++
	sendHop(h, st)
}

func free(rawState any) {
	// No resources beyond the state struct itself to release.
	_ = rawState.(*state)
}
