package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/netreach/paris-traceroute/internal/result"
)

// TableFormatter formats a Result as a detailed table, one row per probe
// outcome (a hop with several next-hop interfaces, as MDA discovers,
// prints several rows sharing the same hop number).
type TableFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(config Config) *TableFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}
	return &TableFormatter{config: config, colors: colors}
}

// Format renders r as a detailed table.
func (f *TableFormatter) Format(r *result.Result) ([]byte, error) {
	var buf bytes.Buffer

	f.writeHeader(&buf, r)

	table := tablewriter.NewWriter(&buf)
	f.configureTable(table)
	table.SetHeader([]string{"Hop", "Type", "Address", "Hostname", "Flow", "RTT (ms)"})

	for _, hop := range r.HopGroups() {
		for _, e := range hop.Result {
			table.Append(f.formatRow(e))
		}
	}
	for _, hop := range r.Stars {
		for _, e := range hop.Result {
			table.Append(f.formatRow(e))
		}
	}

	table.Render()
	return buf.Bytes(), nil
}

func (f *TableFormatter) writeHeader(buf *bytes.Buffer, r *result.Result) {
	header := fmt.Sprintf("From: %s  To: %s\nProtocol: %s\n\n", r.From, r.To, strings.ToUpper(r.Protocol))
	if f.colors != nil {
		header = f.colors.Header.Sprint(header)
	}
	buf.WriteString(header)
}

func (f *TableFormatter) configureTable(table *tablewriter.Table) {
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("│")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetTablePadding(" ")
}

func (f *TableFormatter) formatRow(e result.Entry) []string {
	addr, hostname, rtt := "*", "-", "-"
	if e.Type == "reply" {
		addr = e.From
		if e.Hostname != "" {
			hostname = truncateString(e.Hostname, 25)
		}
		if e.RTT != nil {
			rtt = f.formatRTT(*e.RTT)
		}
	}
	return []string{
		fmt.Sprintf("%d", e.TTL),
		e.Type,
		addr,
		hostname,
		fmt.Sprintf("0x%04X", e.FlowID),
		rtt,
	}
}

func (f *TableFormatter) formatRTT(rtt float64) string {
	str := fmt.Sprintf("%.2f", rtt)
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

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ContentType returns the MIME type for table output.
func (f *TableFormatter) ContentType() string { return "text/plain" }

// FileExtension returns the file extension for table output.
func (f *TableFormatter) FileExtension() string { return "txt" }
