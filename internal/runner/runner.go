// Package runner wires internal/netio, internal/event, internal/algorithm
// and internal/result together into the single orchestration path both
// the CLI and the TUI drive: resolve the target, open sockets, spawn the
// chosen algorithm instance, pump the reactor until it terminates, and
// collect replies into a result.Result.
//
// Grounded on the teacher's internal/trace.Tracer, which used to own this
// same wiring (prober selection, per-hop callback, final TraceResult)
// around a goroutine-per-probe worker pool; this package keeps the
// "one entry point wires prober + callback + result" shape but drives it
// through the single-threaded reactor instead.
package runner

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/netreach/paris-traceroute/internal/address"
	"github.com/netreach/paris-traceroute/internal/algorithm"
	"github.com/netreach/paris-traceroute/internal/algorithm/mda"
	"github.com/netreach/paris-traceroute/internal/algorithm/traceroute"
	"github.com/netreach/paris-traceroute/internal/enrich"
	"github.com/netreach/paris-traceroute/internal/event"
	"github.com/netreach/paris-traceroute/internal/netio"
	"github.com/netreach/paris-traceroute/internal/probe"
	"github.com/netreach/paris-traceroute/internal/result"
)

// nopLogger is used when Options.Logger is nil, so Run never has to guard
// every log call with a nil check.
var nopLogger = zerolog.Nop()

// AlgorithmName selects which algorithm.Descriptor a Run drives.
type AlgorithmName string

const (
	AlgorithmParisTraceroute AlgorithmName = "paris-traceroute"
	AlgorithmMDA             AlgorithmName = "mda"
)

// Options configures one traceroute/MDA run end to end.
type Options struct {
	Target    string
	Algorithm AlgorithmName
	Method    probe.Method
	IPv4      bool
	IPv6      bool

	FirstTTL           int
	MaxTTL             int
	Queries            int // traceroute only: probes per hop
	MaxConsecutiveStar int
	ProbeTimeout       time.Duration
	// InterProbeDelay is the raw -z value: <=10 means seconds, >10 means
	// milliseconds (spec.md §4.2), as netio.NewRateLimiter interprets it.
	// Fractional values are allowed (e.g. 0.5 for a 500ms delay).
	InterProbeDelay float64

	SourcePort int
	DestPort   int

	MDAAlpha float64

	Sorted   bool
	Enricher *enrich.Enricher // nil disables hostname enrichment

	// OnEvent, if set, receives every ALGORITHM_EVENT and
	// ALGORITHM_HAS_TERMINATED event the algorithm runtime forwards (in
	// arrival order), after each is folded into the returned Result — the
	// hook internal/tui's model subscribes through.
	OnEvent func(event.Event)

	// Logger receives structured diagnostics (resolved target, socket
	// setup, probes that failed to send). Nil discards everything; the
	// CLI wires a real logger, raised to debug level under -d.
	Logger *zerolog.Logger
}

// Run resolves opts.Target, drives the chosen algorithm to termination,
// and returns the collected Result.
func Run(ctx context.Context, opts Options) (*result.Result, error) {
	log := nopLogger
	if opts.Logger != nil {
		log = *opts.Logger
	}

	dst, ipv6, err := resolveTarget(opts.Target, opts.IPv4, opts.IPv6)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("target", opts.Target).Str("resolved", dst.String()).Bool("ipv6", ipv6).Msg("resolved target")

	src, err := localSource(dst, ipv6)
	if err != nil {
		return nil, fmt.Errorf("runner: determining source address: %w", err)
	}

	sockets, err := netio.Open(!ipv6, ipv6)
	if err != nil {
		return nil, fmt.Errorf("runner: opening sockets: %w", err)
	}
	defer sockets.Close()
	log.Debug().Str("src", src.String()).Msg("opened raw sockets")

	conn := netio.NewConn(sockets, opts.InterProbeDelay)

	collector := result.NewCollector(src.String(), dst.String(), string(opts.Method), opts.Sorted)

	var loop *event.Loop
	handler := func(ev event.Event) {
		recordEvent(collector, opts.Enricher, ev)
		if opts.OnEvent != nil {
			opts.OnEvent(ev)
		}
		if ev.Kind == event.KindAlgorithmTerminated {
			loop.Terminate()
		}
	}
	rt := algorithm.NewRuntime(conn, handler)

	loop = event.NewLoop(func(ev event.Event) {
		if ev.Err != nil {
			log.Debug().Err(ev.Err).Str("kind", ev.Kind.String()).Msg("probe error, treated as timeout")
		}
		rt.HandleEvent(ev)
	})
	loop.AddSource(conn)

	go sockets.ReadLoop(false, conn.Deliver, loop.Wake)
	if ipv6 {
		go sockets.ReadLoop(true, conn.Deliver, loop.Wake)
	}

	desc, algoOpts := buildDescriptor(opts, src, dst, ipv6)
	rt.Spawn(desc, algoOpts, dst, nil)

	if err := loop.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("reactor terminated with error")
		return nil, err
	}

	return collector.Result(), nil
}

func buildDescriptor(opts Options, src, dst address.Address, ipv6 bool) (algorithm.Descriptor, any) {
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	if opts.Algorithm == AlgorithmMDA {
		return mda.Descriptor(), mda.Options{
			Method:       opts.Method,
			IPv6:         ipv6,
			Src:          src,
			Dst:          dst,
			MaxTTL:       opts.MaxTTL,
			Alpha:        opts.MDAAlpha,
			ProbeTimeout: timeout,
			BaseSrcPort:  uint16(opts.SourcePort),
			DstPort:      uint16(opts.DestPort),
		}
	}

	return traceroute.Descriptor(), traceroute.Options{
		Method:             opts.Method,
		IPv6:               ipv6,
		Src:                src,
		Dst:                dst,
		FirstTTL:           opts.FirstTTL,
		MaxTTL:             opts.MaxTTL,
		NumProbesPerHop:    opts.Queries,
		MaxConsecutiveStar: opts.MaxConsecutiveStar,
		ProbeTimeout:       timeout,
		BaseTag:            1,
		SrcPort:            uint16(opts.SourcePort),
		DstPort:            uint16(opts.DestPort),
	}
}

// recordEvent folds one reactor event into the result.Collector, enriching
// reply addresses with a hostname when an enricher was configured.
func recordEvent(c *result.Collector, enricher *enrich.Enricher, ev event.Event) {
	switch payload := ev.Payload.(type) {
	case traceroute.ReplyEvent:
		hostname := enrichHostname(enricher, payload.From)
		c.RecordReplyWithHostname(payload.TTL, payload.From.String(), payload.Flow.SrcPort, payload.Flow.DstPort, payload.Tag, rttMillis(payload.RTT), hostname)
	case traceroute.StarEvent:
		c.RecordStar(payload.TTL, payload.Flow.SrcPort, payload.Flow.DstPort, payload.Tag)
	case mda.NewLinkEvent:
		if payload.ToStar {
			c.RecordStar(payload.ToTTL, payload.Flow.SrcPort, payload.Flow.DstPort, payload.Tag)
			return
		}
		hostname := enrichHostname(enricher, payload.To)
		c.RecordReplyWithHostname(payload.ToTTL, payload.To.String(), payload.Flow.SrcPort, payload.Flow.DstPort, payload.Tag, rttMillis(payload.RTT), hostname)
	}
}

func rttMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func enrichHostname(enricher *enrich.Enricher, addr address.Address) string {
	if enricher == nil {
		return ""
	}
	er := enricher.EnrichIP(context.Background(), addr.IP())
	if er == nil {
		return ""
	}
	return er.Hostname
}

// resolveTarget resolves target to an Address, honoring explicit v4/v6
// preference flags; when neither is set it prefers whichever family the
// resolver returns first.
func resolveTarget(target string, ipv4, ipv6 bool) (address.Address, bool, error) {
	ips, err := net.LookupIP(target)
	if err != nil {
		if ip, perr := address.FromString(target); perr == nil {
			return ip, ip.IsIPv6(), nil
		}
		return address.Address{}, false, fmt.Errorf("runner: resolving %q: %w", target, err)
	}

	for _, ip := range ips {
		addr, err := address.FromIP(ip)
		if err != nil {
			continue
		}
		if ipv6 && !addr.IsIPv6() {
			continue
		}
		if ipv4 && !addr.IsIPv4() {
			continue
		}
		return addr, addr.IsIPv6(), nil
	}

	return address.Address{}, false, fmt.Errorf("runner: no address for %q matching the requested family", target)
}

// localSource finds the outbound source address the kernel would pick for
// dst, the standard net.Dial("udp", ...) trick: no packet is actually
// sent, the socket just inherits the route's source address.
func localSource(dst address.Address, ipv6 bool) (address.Address, error) {
	network := "udp4"
	if ipv6 {
		network = "udp6"
	}
	conn, err := net.Dial(network, net.JoinHostPort(dst.String(), "80"))
	if err != nil {
		return address.Address{}, err
	}
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		return address.Address{}, err
	}
	return address.FromString(host)
}
