// Package output renders a result.Result in the formats spec.md §6
// names (`default`, `json`, `xml`) plus the teacher's pack-native
// extensions (verbose table, CSV, HTML).
package output

import (
	"github.com/netreach/paris-traceroute/internal/result"
)

// Format represents the output format type.
type Format int

const (
	// FormatText is the classic traceroute-style output (spec.md §6 "default").
	FormatText Format = iota
	// FormatVerbose is the detailed table output.
	FormatVerbose
	// FormatJSON is JSON output (spec.md §6 "json").
	FormatJSON
	// FormatXML is XML output (spec.md §6 "xml").
	FormatXML
	// FormatCSV is CSV output.
	FormatCSV
	// FormatHTML is HTML report output.
	FormatHTML
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "default"
	case FormatVerbose:
		return "verbose"
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	case FormatCSV:
		return "csv"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}

// Formatter defines the interface for output formatters.
type Formatter interface {
	// Format converts a Result to formatted output bytes.
	Format(r *result.Result) ([]byte, error)

	// ContentType returns the MIME type for the output.
	ContentType() string

	// FileExtension returns the typical file extension for the output.
	FileExtension() string
}

// Config holds configuration for formatters.
type Config struct {
	// Colors enables ANSI color output
	Colors bool

	// NoHostname disables hostname display
	NoHostname bool

	// Width is the terminal width (0 = auto-detect)
	Width int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Colors: true}
}

// NewFormatter creates a formatter based on the specified format.
func NewFormatter(format Format, config Config) Formatter {
	switch format {
	case FormatText:
		return NewTextFormatter(config)
	case FormatVerbose:
		return NewTableFormatter(config)
	case FormatJSON:
		return NewJSONFormatter(config)
	case FormatXML:
		return NewXMLFormatter(config)
	case FormatCSV:
		return NewCSVFormatter(config)
	case FormatHTML:
		return NewHTMLFormatter(config)
	default:
		return NewTextFormatter(config)
	}
}
