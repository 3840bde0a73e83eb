package result

import (
	"encoding/json"
	"testing"
)

func TestCollectorUnsortedStreamsMixedEntriesPerHop(t *testing.T) {
	c := NewCollector("192.0.2.1", "198.51.100.1", "udp", false)
	c.RecordReply(1, "198.51.100.2", 33456, 33457, 0xBEEF, 12.5)
	c.RecordStar(2, 33456, 33457, 0xBEEF)
	c.RecordReply(2, "198.51.100.3", 33456, 33457, 0xBEEF, 15.0)

	r := c.Result()
	if r.Stars != nil {
		t.Fatalf("unsorted Result must not have a stars array, got %+v", r.Stars)
	}

	flat, ok := r.Results.([]Entry)
	if !ok {
		t.Fatalf("unsorted Result.Results = %T, want []Entry (flat, no per-hop wrapper)", r.Results)
	}
	if len(flat) != 3 {
		t.Fatalf("len(flat entries) = %d, want 3", len(flat))
	}
	if flat[0].TTL != 1 || flat[1].TTL != 2 || flat[2].TTL != 2 {
		t.Fatalf("entries out of arrival order: %+v", flat)
	}
	if flat[1].Type != "star" || flat[2].Type != "reply" {
		t.Fatalf("hop 2 entries out of arrival order: %+v", flat[1:])
	}

	// Pin the actual wire shape: each element of the unsorted "results"
	// array must be a bare entry object, never {"hop":n,"result":[...]}
	// (original_source/paris-traceroute/paris-traceroute.c streams
	// reply_to_json/star_to_json objects directly with no hop wrapper).
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	var wire struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if len(wire.Results) != 3 {
		t.Fatalf("wire results length = %d, want 3", len(wire.Results))
	}
	for _, elem := range wire.Results {
		if _, has := elem["hop"]; has {
			t.Fatalf("unsorted wire entry carries a hop wrapper: %+v", elem)
		}
		if _, has := elem["result"]; has {
			t.Fatalf("unsorted wire entry carries a result wrapper: %+v", elem)
		}
		if _, has := elem["type"]; !has {
			t.Fatalf("unsorted wire entry missing type: %+v", elem)
		}
	}
}

func TestCollectorSortedSplitsRepliesAndStars(t *testing.T) {
	c := NewCollector("192.0.2.1", "198.51.100.1", "udp", true)
	c.RecordStar(3, 33456, 33457, 0xBEEF)
	c.RecordReply(1, "198.51.100.2", 33456, 33457, 0xBEEF, 12.5)
	c.RecordReply(2, "198.51.100.3", 33456, 33457, 0xBEEF, 15.0)

	r := c.Result()
	groups, ok := r.Results.([]HopResult)
	if !ok {
		t.Fatalf("sorted Result.Results = %T, want []HopResult", r.Results)
	}
	if len(groups) != 2 {
		t.Fatalf("Results = %d hop groups, want 2 (stars excluded)", len(groups))
	}
	if groups[0].Hop != 1 || groups[1].Hop != 2 {
		t.Fatalf("sorted Results not ordered by hop: %+v", groups)
	}
	if len(r.Stars) != 1 || r.Stars[0].Hop != 3 {
		t.Fatalf("Stars = %+v, want one group at hop 3", r.Stars)
	}
}

func TestStarEntryOmitsFromAndRTT(t *testing.T) {
	c := NewCollector("a", "b", "icmp", false)
	c.RecordStar(1, 1, 2, 3)
	e := c.Result().Results.([]Entry)[0]
	if e.From != "" || e.RTT != nil {
		t.Fatalf("star entry carries From/RTT: %+v", e)
	}
}

func TestHopGroupsReconstructsFlatEntriesByHop(t *testing.T) {
	c := NewCollector("a", "b", "udp", false)
	c.RecordReply(1, "198.51.100.2", 33456, 33457, 0xBEEF, 1.0)
	c.RecordReply(1, "198.51.100.9", 33456, 33457, 0xCAFE, 2.0)
	c.RecordStar(2, 33456, 33457, 0xCAFE)

	groups := c.Result().HopGroups()
	if len(groups) != 2 {
		t.Fatalf("HopGroups() = %d groups, want 2", len(groups))
	}
	if groups[0].Hop != 1 || len(groups[0].Result) != 2 {
		t.Fatalf("hop 1 group = %+v, want 2 entries", groups[0])
	}
	if groups[1].Hop != 2 || len(groups[1].Result) != 1 {
		t.Fatalf("hop 2 group = %+v, want 1 entry", groups[1])
	}
}
