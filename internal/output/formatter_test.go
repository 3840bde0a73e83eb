package output

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/netreach/paris-traceroute/internal/result"
)

func floatPtr(v float64) *float64 { return &v }

// sampleResult builds a small Result exercising a reply, a reply with a
// hostname, and a star hop.
func sampleResult() *result.Result {
	return &result.Result{
		From:     "192.0.2.10",
		To:       "google.com",
		Protocol: "udp",
		Results: []result.HopResult{
			{
				Hop: 1,
				Result: []result.Entry{
					{Type: "reply", From: "192.168.1.1", SrcPort: 33456, DstPort: 33457, FlowID: 1, TTL: 1, RTT: floatPtr(1.271), Hostname: "router.local"},
				},
			},
			{
				Hop: 2,
				Result: []result.Entry{
					{Type: "reply", From: "10.0.0.1", SrcPort: 33456, DstPort: 33457, FlowID: 1, TTL: 2, RTT: floatPtr(5.555)},
				},
			},
		},
		Stars: []result.HopResult{
			{
				Hop:    3,
				Result: []result.Entry{{Type: "star", SrcPort: 33456, DstPort: 33457, FlowID: 1, TTL: 3}},
			},
		},
	}
}

func TestTextFormatter(t *testing.T) {
	config := Config{Colors: false}
	formatter := NewTextFormatter(config)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := string(data)

	if !strings.Contains(output, "traceroute to google.com") {
		t.Error("Output should contain target in header")
	}
	if !strings.Contains(output, "192.168.1.1") {
		t.Error("Output should contain hop 1 address")
	}
	if !strings.Contains(output, "router.local") {
		t.Error("Output should contain hop 1 hostname")
	}
	if !strings.Contains(output, "10.0.0.1") {
		t.Error("Output should contain hop 2 address")
	}
	if !strings.Contains(output, "*") {
		t.Error("Output should contain a timeout marker for the star hop")
	}
}

func TestTableFormatter(t *testing.T) {
	config := Config{Colors: false}
	formatter := NewTableFormatter(config)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := string(data)

	if !strings.Contains(output, "google.com") {
		t.Error("Output should contain target")
	}
	if !strings.Contains(output, "HOP") {
		t.Error("Output should contain HOP column")
	}
	if !strings.Contains(output, "192.168.1.1") {
		t.Error("Output should contain hop address")
	}
}

func TestJSONFormatter(t *testing.T) {
	config := Config{}
	formatter := NewJSONFormatter(config)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	// sampleResult() builds a sorted-shape Result (Results is []HopResult),
	// so parse with that concrete shape rather than result.Result itself
	// (whose Results field is `any` and so can't be len()'d/indexed
	// without first asserting a concrete type).
	var parsed struct {
		To      string             `json:"to"`
		Results []result.HopResult `json:"results"`
		Stars   []result.HopResult `json:"stars"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("JSON parsing error: %v", err)
	}

	if parsed.To != "google.com" {
		t.Errorf("To = %q, want %q", parsed.To, "google.com")
	}
	if len(parsed.Results) != 2 {
		t.Errorf("len(Results) = %d, want 2", len(parsed.Results))
	}
	if len(parsed.Stars) != 1 {
		t.Errorf("len(Stars) = %d, want 1", len(parsed.Stars))
	}
	if parsed.Results[0].Result[0].From != "192.168.1.1" {
		t.Errorf("Results[0].Result[0].From = %q, want %q", parsed.Results[0].Result[0].From, "192.168.1.1")
	}
}

func TestJSONFormatterCompact(t *testing.T) {
	config := Config{}
	formatter := NewJSONFormatterCompact(config)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) > 1 {
		if len(lines) > 2 || lines[1] != "" {
			t.Error("Compact JSON should be on a single line")
		}
	}
}

func TestXMLFormatter(t *testing.T) {
	config := Config{}
	formatter := NewXMLFormatter(config)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	if !strings.Contains(string(data), xml.Header) {
		t.Error("Output should start with the XML declaration")
	}
	if !strings.Contains(string(data), "192.168.1.1") {
		t.Error("Output should contain hop address")
	}
}

func TestCSVFormatter(t *testing.T) {
	config := Config{}
	formatter := NewCSVFormatter(config)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	reader := csv.NewReader(strings.NewReader(string(data)))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("CSV parsing error: %v", err)
	}

	if records[0][0] != "hop" {
		t.Errorf("Header[0] = %q, want %q", records[0][0], "hop")
	}
	if records[0][2] != "from" {
		t.Errorf("Header[2] = %q, want %q", records[0][2], "from")
	}

	// header + 2 replies + 1 star
	if len(records) != 4 {
		t.Errorf("len(records) = %d, want 4", len(records))
	}
	if records[1][0] != "1" {
		t.Errorf("Row 1 hop = %q, want %q", records[1][0], "1")
	}
	if records[1][2] != "192.168.1.1" {
		t.Errorf("Row 1 from = %q, want %q", records[1][2], "192.168.1.1")
	}
}

func TestNewFormatter(t *testing.T) {
	config := DefaultConfig()

	tests := []struct {
		format   Format
		expected string
	}{
		{FormatText, "text/plain"},
		{FormatVerbose, "text/plain"},
		{FormatJSON, "application/json"},
		{FormatXML, "application/xml"},
		{FormatCSV, "text/csv"},
		{FormatHTML, "text/html"},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			formatter := NewFormatter(tt.format, config)
			if formatter.ContentType() != tt.expected {
				t.Errorf("ContentType() = %q, want %q", formatter.ContentType(), tt.expected)
			}
		})
	}
}

func TestHTMLFormatter(t *testing.T) {
	config := Config{Colors: false}
	formatter := NewHTMLFormatter(config)

	data, err := formatter.Format(sampleResult())
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	output := string(data)

	if !strings.Contains(output, "<!DOCTYPE html>") {
		t.Error("Output should contain DOCTYPE")
	}
	if !strings.Contains(output, "google.com") {
		t.Error("Output should contain target")
	}
	if !strings.Contains(output, "192.168.1.1") {
		t.Error("Output should contain hop address")
	}
	if !strings.Contains(output, "<style>") {
		t.Error("Output should contain embedded CSS")
	}
}

func TestHTMLFormatterRTTClass(t *testing.T) {
	tests := []struct {
		rtt      float64
		expected string
	}{
		{0, "neutral"},
		{-1, "neutral"},
		{25, "good"},
		{75, "medium"},
		{200, "bad"},
	}

	for _, tt := range tests {
		got := rttClass(tt.rtt)
		if got != tt.expected {
			t.Errorf("rttClass(%v) = %q, want %q", tt.rtt, got, tt.expected)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long string", 10, "this is..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := truncateString(tt.input, tt.maxLen)
			if got != tt.expected {
				t.Errorf("truncateString(%q, %d) = %q, want %q",
					tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}
