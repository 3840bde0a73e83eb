package output

import (
	"encoding/xml"

	"github.com/netreach/paris-traceroute/internal/result"
)

// XMLFormatter renders a Result as XML for spec.md §6's `-F xml`. No
// example repo in the corpus pulls in a third-party XML library for a
// shape this small, so this uses the standard library's encoding/xml
// (see DESIGN.md).
type XMLFormatter struct {
	config Config
}

// NewXMLFormatter creates a new XML formatter.
func NewXMLFormatter(config Config) *XMLFormatter {
	return &XMLFormatter{config: config}
}

type xmlEntry struct {
	Type    string   `xml:"type,attr"`
	From    string   `xml:"from,attr,omitempty"`
	SrcPort uint16   `xml:"src_port,attr"`
	DstPort uint16   `xml:"dst_port,attr"`
	FlowID  uint16   `xml:"flow_id,attr"`
	TTL     int      `xml:"ttl,attr"`
	RTT     *float64 `xml:"rtt,attr,omitempty"`
}

type xmlHop struct {
	Hop     int        `xml:"number,attr"`
	Entries []xmlEntry `xml:"entry"`
}

type xmlResult struct {
	XMLName  xml.Name `xml:"traceroute"`
	From     string   `xml:"from,attr"`
	To       string   `xml:"to,attr"`
	Protocol string   `xml:"protocol,attr"`
	Results  []xmlHop `xml:"results>hop"`
	Stars    []xmlHop `xml:"stars>hop,omitempty"`
}

// Format renders r as XML.
func (f *XMLFormatter) Format(r *result.Result) ([]byte, error) {
	out := xmlResult{From: r.From, To: r.To, Protocol: r.Protocol}
	out.Results = toXMLHops(r.HopGroups())
	out.Stars = toXMLHops(r.Stars)

	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func toXMLHops(hops []result.HopResult) []xmlHop {
	out := make([]xmlHop, len(hops))
	for i, h := range hops {
		entries := make([]xmlEntry, len(h.Result))
		for j, e := range h.Result {
			entries[j] = xmlEntry{
				Type: e.Type, From: e.From, SrcPort: e.SrcPort,
				DstPort: e.DstPort, FlowID: e.FlowID, TTL: e.TTL, RTT: e.RTT,
			}
		}
		out[i] = xmlHop{Hop: h.Hop, Entries: entries}
	}
	return out
}

// ContentType returns the MIME type for XML output.
func (f *XMLFormatter) ContentType() string { return "application/xml" }

// FileExtension returns the file extension for XML output.
func (f *XMLFormatter) FileExtension() string { return "xml" }
