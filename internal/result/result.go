// Package result defines the wire shape spec.md §6 mandates for `-F
// json` output and a Collector that builds it up incrementally from
// ALGORITHM_EVENT traffic, so the same accumulated data also backs the
// text/table/CSV/HTML formatters in internal/output.
package result

import "sort"

// Entry is one probe's outcome inside a hop's result list. A reply_obj
// carries From and RTTMillis; a star_obj omits both (spec.md §6).
type Entry struct {
	Type     string   `json:"type"` // "reply" or "star"
	From     string   `json:"from,omitempty"`
	SrcPort  uint16   `json:"src_port"`
	DstPort  uint16   `json:"dst_port"`
	FlowID   uint16   `json:"flow_id"`
	TTL      int      `json:"ttl"`
	RTT      *float64 `json:"rtt,omitempty"` // milliseconds
	Hostname string   `json:"-"`             // rDNS annotation; text/table only, not part of the wire shape
}

// HopResult groups a hop number with its probe outcomes.
type HopResult struct {
	Hop    int     `json:"hop"`
	Result []Entry `json:"result"`
}

// Result is the top-level `-F json` object (spec.md §6). Results holds the
// two distinct wire shapes the original paris-traceroute's JSON output
// mode produces (see original_source/paris-traceroute/paris-traceroute.c,
// reply_to_json/star_to_json streamed into a flat "results" array): in
// unsorted mode (the default, `-S` absent) it is a flat []Entry with no
// per-hop wrapper, hops in the order their first entry arrived and each
// hop's entries in arrival order (entries of different hops are not
// interleaved by arrival time); in sorted mode (`-S`) it is a
// []HopResult grouped and ordered by hop, matching Stars. Formatters that
// always want a per-hop view regardless of mode should call HopGroups
// rather than type-asserting this field directly.
type Result struct {
	From     string      `json:"from"`
	To       string      `json:"to"`
	Protocol string      `json:"protocol"`
	Results  any         `json:"results"`
	Stars    []HopResult `json:"stars,omitempty"`
}

// HopGroups returns the result entries grouped by hop, regardless of
// whether Results holds a sorted []HopResult or an unsorted flat []Entry,
// for formatters (text/table/csv/html/xml) that always render per hop.
func (r *Result) HopGroups() []HopResult {
	switch v := r.Results.(type) {
	case []HopResult:
		return v
	case []Entry:
		var groups []HopResult
		for _, e := range v {
			if len(groups) == 0 || groups[len(groups)-1].Hop != e.TTL {
				groups = append(groups, HopResult{Hop: e.TTL})
			}
			last := &groups[len(groups)-1]
			last.Result = append(last.Result, e)
		}
		return groups
	default:
		return nil
	}
}

// Collector accumulates probe outcomes per hop, each hop's in arrival
// order, and renders them into a Result either as one flat list with hops
// in first-arrival order (unsorted, `-S` absent) or split into separate
// reply/star arrays grouped and ordered by hop (`-S` present) per
// spec.md §6.
type Collector struct {
	from, to, protocol string
	sorted             bool

	hopOrder   []int
	hopEntries map[int][]Entry
}

// NewCollector creates a Collector for one run's endpoints.
func NewCollector(from, to, protocol string, sorted bool) *Collector {
	return &Collector{
		from: from, to: to, protocol: protocol, sorted: sorted,
		hopEntries: make(map[int][]Entry),
	}
}

// RecordReply appends a reply outcome for ttl.
func (c *Collector) RecordReply(ttl int, from string, srcPort, dstPort, flowID uint16, rttMillis float64) {
	c.append(ttl, Entry{
		Type: "reply", From: from,
		SrcPort: srcPort, DstPort: dstPort, FlowID: flowID, TTL: ttl,
		RTT: &rttMillis,
	})
}

// RecordReplyWithHostname is RecordReply plus an rDNS annotation used by
// the text/table/HTML formatters (not part of the JSON wire shape).
func (c *Collector) RecordReplyWithHostname(ttl int, from string, srcPort, dstPort, flowID uint16, rttMillis float64, hostname string) {
	c.append(ttl, Entry{
		Type: "reply", From: from,
		SrcPort: srcPort, DstPort: dstPort, FlowID: flowID, TTL: ttl,
		RTT: &rttMillis, Hostname: hostname,
	})
}

// RecordStar appends a timeout outcome for ttl.
func (c *Collector) RecordStar(ttl int, srcPort, dstPort, flowID uint16) {
	c.append(ttl, Entry{
		Type: "star", SrcPort: srcPort, DstPort: dstPort, FlowID: flowID, TTL: ttl,
	})
}

func (c *Collector) append(ttl int, e Entry) {
	if _, seen := c.hopEntries[ttl]; !seen {
		c.hopOrder = append(c.hopOrder, ttl)
	}
	c.hopEntries[ttl] = append(c.hopEntries[ttl], e)
}

// Result renders the accumulated entries.
func (c *Collector) Result() *Result {
	r := &Result{From: c.from, To: c.to, Protocol: c.protocol}

	if !c.sorted {
		var flat []Entry
		for _, ttl := range c.hopOrder {
			flat = append(flat, c.hopEntries[ttl]...)
		}
		r.Results = flat
		return r
	}

	ttls := append([]int(nil), c.hopOrder...)
	sort.Ints(ttls)

	var sorted []HopResult
	for _, ttl := range ttls {
		var replies, stars []Entry
		for _, e := range c.hopEntries[ttl] {
			if e.Type == "reply" {
				replies = append(replies, e)
			} else {
				stars = append(stars, e)
			}
		}
		if len(replies) > 0 {
			sorted = append(sorted, HopResult{Hop: ttl, Result: replies})
		}
		if len(stars) > 0 {
			r.Stars = append(r.Stars, HopResult{Hop: ttl, Result: stars})
		}
	}
	r.Results = sorted
	return r
}
