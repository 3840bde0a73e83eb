package output

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"

	"github.com/netreach/paris-traceroute/internal/result"
)

// TextFormatter formats a Result in classic traceroute style: one line
// per hop, one field per probe outcome.
type TextFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(config Config) *TextFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}
	return &TextFormatter{config: config, colors: colors}
}

// Format renders a Result as classic traceroute text output.
func (f *TextFormatter) Format(r *result.Result) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "traceroute to %s from %s, protocol %s\n", r.To, r.From, r.Protocol)

	for _, hop := range r.HopGroups() {
		f.formatHop(&buf, hop)
	}
	for _, hop := range r.Stars {
		f.formatHop(&buf, hop)
	}

	return buf.Bytes(), nil
}

func (f *TextFormatter) formatHop(buf *bytes.Buffer, hop result.HopResult) {
	hopNum := fmt.Sprintf("%3d  ", hop.Hop)
	if f.colors != nil {
		hopNum = f.colors.Hop.Sprint(hopNum)
	}
	buf.WriteString(hopNum)

	for _, e := range hop.Result {
		if e.Type != "reply" {
			timeout := "*"
			if f.colors != nil {
				timeout = f.colors.Timeout.Sprint(timeout)
			}
			fmt.Fprintf(buf, "%s  ", timeout)
			continue
		}

		ipStr := e.From
		if f.colors != nil {
			ipStr = f.colors.IP.Sprint(ipStr)
		}
		if e.Hostname != "" && !f.config.NoHostname {
			hostname := e.Hostname
			if f.colors != nil {
				hostname = f.colors.Hostname.Sprint(hostname)
			}
			fmt.Fprintf(buf, "%s (%s) ", hostname, ipStr)
		} else {
			fmt.Fprintf(buf, "%s ", ipStr)
		}

		if e.RTT != nil {
			fmt.Fprintf(buf, "%s  ", f.colorizeRTT(*e.RTT))
		}
	}
	buf.WriteString("\n")
}

func (f *TextFormatter) colorizeRTT(rtt float64) string {
	str := fmt.Sprintf("%.3f ms", rtt)
	if f.colors == nil {
		return str
	}
	switch {
	case rtt < 50:
		return f.colors.RTTLow.Sprint(str)
	case rtt < 150:
		return f.colors.RTTMed.Sprint(str)
	default:
		return f.colors.RTTHigh.Sprint(str)
	}
}

// ContentType returns the MIME type for text output.
func (f *TextFormatter) ContentType() string { return "text/plain" }

// FileExtension returns the file extension for text output.
func (f *TextFormatter) FileExtension() string { return "txt" }

// ColorScheme defines colors for different output elements.
type ColorScheme struct {
	Hop      *color.Color
	IP       *color.Color
	Hostname *color.Color
	RTTLow   *color.Color // < 50ms
	RTTMed   *color.Color // 50-150ms
	RTTHigh  *color.Color // > 150ms
	Timeout  *color.Color
	Header   *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Hop:      color.New(color.FgCyan, color.Bold),
		IP:       color.New(color.FgWhite),
		Hostname: color.New(color.FgGreen),
		RTTLow:   color.New(color.FgGreen),
		RTTMed:   color.New(color.FgYellow),
		RTTHigh:  color.New(color.FgRed),
		Timeout:  color.New(color.FgRed, color.Bold),
		Header:   color.New(color.FgWhite, color.Bold),
	}
}
