package tui

import (
	"testing"
	"time"

	"github.com/netreach/paris-traceroute/internal/algorithm/traceroute"
	"github.com/netreach/paris-traceroute/internal/event"
)

func TestDefaultStyles(t *testing.T) {
	styles := DefaultStyles()

	if styles.Title.String() == "" {
		// Style should be defined
	}

	low := styles.RTTLow.Render("test")
	med := styles.RTTMed.Render("test")
	high := styles.RTTHigh.Render("test")

	if low == med || med == high {
		t.Log("RTT styles should be visually different")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a very long string", 10, "this is..."},
		{"ab", 2, "ab"},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := truncate(tt.input, tt.maxLen)
			if result != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q",
					tt.input, tt.maxLen, result, tt.expected)
			}
		})
	}
}

func TestDarkTheme(t *testing.T) {
	styles := DarkTheme()

	if styles.Title.String() == "" && styles.RTTLow.String() == "" {
		// At least one style should be defined
	}
}

func TestLightTheme(t *testing.T) {
	styles := LightTheme()

	if styles.Title.String() == "" && styles.RTTLow.String() == "" {
		// At least one style should be defined
	}
}

func TestMinimalTheme(t *testing.T) {
	styles := MinimalTheme()

	if styles.Title.String() == "" {
		// At least one style should be defined
	}
}

func TestModelRenderRow(t *testing.T) {
	model := &Model{
		target: "example.com",
		styles: DefaultStyles(),
	}

	row := model.renderRow(hopRow{ttl: 1, address: "192.168.1.1", rtt: 10500 * time.Microsecond})
	if row == "" {
		t.Error("renderRow should return non-empty string for a reply")
	}

	starRow := model.renderRow(hopRow{ttl: 2, isStar: true})
	if starRow == "" {
		t.Error("renderRow should handle star rows")
	}
}

func TestAppendRow(t *testing.T) {
	var rows []hopRow
	rows = appendRow(rows, event.Event{
		Kind:    event.KindAlgorithmEvent,
		Payload: traceroute.ReplyEvent{TTL: 1, RTT: 5 * time.Millisecond},
	})
	rows = appendRow(rows, event.Event{
		Kind:    event.KindAlgorithmEvent,
		Payload: traceroute.StarEvent{TTL: 2},
	})

	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if !rows[1].isStar {
		t.Error("second row should be a star")
	}
}

func TestColorizeRTT(t *testing.T) {
	model := &Model{
		styles: DefaultStyles(),
	}

	tests := []struct {
		name string
		rtt  time.Duration
	}{
		{"low latency", 25 * time.Millisecond},
		{"medium latency", 75 * time.Millisecond},
		{"high latency", 200 * time.Millisecond},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := model.colorizeRTT("10.00 ms", tt.rtt)
			if result == "" {
				t.Error("colorizeRTT should return non-empty string")
			}
		})
	}
}
