package output

import (
	"encoding/json"

	"github.com/netreach/paris-traceroute/internal/result"
)

// JSONFormatter renders a Result as the exact JSON object spec.md §6
// defines for `-F json`.
type JSONFormatter struct {
	config Config
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(config Config) *JSONFormatter {
	return &JSONFormatter{config: config, pretty: true}
}

// NewJSONFormatterCompact creates a JSON formatter with compact output.
func NewJSONFormatterCompact(config Config) *JSONFormatter {
	return &JSONFormatter{config: config, pretty: false}
}

// SetPretty enables or disables pretty-printing.
func (f *JSONFormatter) SetPretty(pretty bool) { f.pretty = pretty }

// Format renders r as JSON.
func (f *JSONFormatter) Format(r *result.Result) ([]byte, error) {
	if f.pretty {
		return json.MarshalIndent(r, "", "  ")
	}
	return json.Marshal(r)
}

// ContentType returns the MIME type for JSON output.
func (f *JSONFormatter) ContentType() string { return "application/json" }

// FileExtension returns the file extension for JSON output.
func (f *JSONFormatter) FileExtension() string { return "json" }
