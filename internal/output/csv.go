package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/netreach/paris-traceroute/internal/result"
)

// CSVFormatter formats a Result as one row per probe outcome.
type CSVFormatter struct {
	config  Config
	columns []string
}

var defaultCSVColumns = []string{
	"hop", "type", "from", "hostname", "src_port", "dst_port", "flow_id", "rtt_ms",
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(config Config) *CSVFormatter {
	return &CSVFormatter{config: config, columns: defaultCSVColumns}
}

// SetColumns allows customizing which columns to include.
func (f *CSVFormatter) SetColumns(columns []string) {
	f.columns = columns
}

// Format renders r as CSV, one row per probe outcome across both
// r.HopGroups() and r.Stars (in that order).
func (f *CSVFormatter) Format(r *result.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(f.columns); err != nil {
		return nil, err
	}

	for _, hop := range r.HopGroups() {
		for _, e := range hop.Result {
			if err := writer.Write(f.formatRow(e)); err != nil {
				return nil, err
			}
		}
	}
	for _, hop := range r.Stars {
		for _, e := range hop.Result {
			if err := writer.Write(f.formatRow(e)); err != nil {
				return nil, err
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *CSVFormatter) formatRow(e result.Entry) []string {
	row := make([]string, len(f.columns))
	for i, col := range f.columns {
		row[i] = f.getValue(e, col)
	}
	return row
}

func (f *CSVFormatter) getValue(e result.Entry, column string) string {
	switch column {
	case "hop":
		return strconv.Itoa(e.TTL)
	case "type":
		return e.Type
	case "from":
		if e.From != "" {
			return e.From
		}
		return "*"
	case "hostname":
		return e.Hostname
	case "src_port":
		return strconv.Itoa(int(e.SrcPort))
	case "dst_port":
		return strconv.Itoa(int(e.DstPort))
	case "flow_id":
		return strconv.Itoa(int(e.FlowID))
	case "rtt_ms":
		if e.RTT != nil {
			return fmt.Sprintf("%.3f", *e.RTT)
		}
		return ""
	default:
		return ""
	}
}

// ContentType returns the MIME type for CSV output.
func (f *CSVFormatter) ContentType() string { return "text/csv" }

// FileExtension returns the file extension for CSV output.
func (f *CSVFormatter) FileExtension() string { return "csv" }
