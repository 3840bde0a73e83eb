package output

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/netreach/paris-traceroute/internal/result"
)

// HTMLFormatter formats a Result as an HTML report.
type HTMLFormatter struct {
	config   Config
	template *template.Template
}

// NewHTMLFormatter creates a new HTML formatter.
func NewHTMLFormatter(config Config) *HTMLFormatter {
	tmpl := template.Must(template.New("report").Funcs(template.FuncMap{
		"rttClass": rttClass,
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05 MST")
		},
	}).Parse(htmlTemplate))

	return &HTMLFormatter{
		config:   config,
		template: tmpl,
	}
}

// Format renders r as an HTML report.
func (f *HTMLFormatter) Format(r *result.Result) ([]byte, error) {
	data := f.prepareData(r)

	var buf bytes.Buffer
	if err := f.template.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.Bytes(), nil
}

// htmlData holds the data for the HTML template.
type htmlData struct {
	Title       string
	From        string
	To          string
	Protocol    string
	Hops        []htmlHop
	Summary     htmlSummary
	GeneratedAt time.Time
}

// htmlHop represents one hop group (one or more next-hop interfaces) for
// HTML rendering.
type htmlHop struct {
	Number  int
	Entries []htmlEntry
}

// htmlEntry represents a single probe outcome.
type htmlEntry struct {
	Type     string
	Address  string
	Hostname string
	FlowID   string
	RTT      string
	RTTClass string
	Replied  bool
}

// htmlSummary holds summary data for HTML.
type htmlSummary struct {
	TotalHops   int
	Interfaces  int
	Stars       int
	GeneratedAt string
}

// prepareData converts a Result to template data.
func (f *HTMLFormatter) prepareData(r *result.Result) *htmlData {
	hopGroups := r.HopGroups()
	data := &htmlData{
		Title:       fmt.Sprintf("Traceroute to %s", r.To),
		From:        r.From,
		To:          r.To,
		Protocol:    r.Protocol,
		Hops:        make([]htmlHop, 0, len(hopGroups)+len(r.Stars)),
		GeneratedAt: time.Now(),
	}

	interfaces, stars := 0, 0
	for _, hop := range hopGroups {
		data.Hops = append(data.Hops, f.convertHop(hop))
		for _, e := range hop.Result {
			if e.Type == "reply" {
				interfaces++
			} else {
				stars++
			}
		}
	}
	for _, hop := range r.Stars {
		data.Hops = append(data.Hops, f.convertHop(hop))
		stars += len(hop.Result)
	}

	data.Summary = htmlSummary{
		TotalHops:  len(data.Hops),
		Interfaces: interfaces,
		Stars:      stars,
	}

	return data
}

func (f *HTMLFormatter) convertHop(hop result.HopResult) htmlHop {
	h := htmlHop{Number: hop.Hop, Entries: make([]htmlEntry, len(hop.Result))}
	for i, e := range hop.Result {
		entry := htmlEntry{
			Type:    e.Type,
			FlowID:  fmt.Sprintf("0x%04X", e.FlowID),
			Replied: e.Type == "reply",
		}
		if entry.Replied {
			entry.Address = e.From
			entry.Hostname = e.Hostname
			if e.RTT != nil {
				entry.RTT = fmt.Sprintf("%.2f ms", *e.RTT)
				entry.RTTClass = rttClass(*e.RTT)
			} else {
				entry.RTT = "-"
				entry.RTTClass = "neutral"
			}
		} else {
			entry.Address = "*"
			entry.RTT = "-"
			entry.RTTClass = "timeout"
		}
		h.Entries[i] = entry
	}
	return h
}

// rttClass returns a CSS class name based on an RTT value.
func rttClass(rtt float64) string {
	if rtt <= 0 {
		return "neutral"
	}
	switch {
	case rtt < 50:
		return "good"
	case rtt < 150:
		return "medium"
	default:
		return "bad"
	}
}

// ContentType returns the MIME type for HTML output.
func (f *HTMLFormatter) ContentType() string {
	return "text/html"
}

// FileExtension returns the file extension for HTML output.
func (f *HTMLFormatter) FileExtension() string {
	return "html"
}

// HTML template
const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - paris-traceroute Report</title>
    <style>
        :root {
            --bg-primary: #1a1b26;
            --bg-secondary: #24283b;
            --bg-tertiary: #414868;
            --text-primary: #c0caf5;
            --text-secondary: #a9b1d6;
            --text-muted: #565f89;
            --accent: #7aa2f7;
            --success: #9ece6a;
            --warning: #e0af68;
            --error: #f7768e;
            --border: #3b4261;
        }

        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            line-height: 1.6;
            padding: 2rem;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
        }

        header {
            text-align: center;
            margin-bottom: 2rem;
            padding-bottom: 1rem;
            border-bottom: 1px solid var(--border);
        }

        h1 {
            color: var(--accent);
            font-size: 2rem;
            margin-bottom: 0.5rem;
        }

        .subtitle {
            color: var(--text-muted);
            font-size: 0.9rem;
        }

        .info-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 1rem;
            margin-bottom: 2rem;
        }

        .info-card {
            background: var(--bg-secondary);
            padding: 1rem;
            border-radius: 8px;
            border: 1px solid var(--border);
        }

        .info-card label {
            color: var(--text-muted);
            font-size: 0.8rem;
            text-transform: uppercase;
            letter-spacing: 0.05em;
        }

        .info-card value {
            display: block;
            color: var(--text-primary);
            font-size: 1.1rem;
            font-weight: 500;
            margin-top: 0.25rem;
        }

        table {
            width: 100%;
            border-collapse: collapse;
            background: var(--bg-secondary);
            border-radius: 8px;
            overflow: hidden;
            margin-bottom: 2rem;
        }

        th, td {
            padding: 0.75rem 1rem;
            text-align: left;
            border-bottom: 1px solid var(--border);
        }

        th {
            background: var(--bg-tertiary);
            color: var(--text-secondary);
            font-weight: 600;
            font-size: 0.85rem;
            text-transform: uppercase;
            letter-spacing: 0.05em;
        }

        tr:last-child td {
            border-bottom: none;
        }

        tr:hover {
            background: var(--bg-tertiary);
        }

        .hop-num {
            color: var(--accent);
            font-weight: 600;
        }

        .ip {
            font-family: 'Monaco', 'Menlo', monospace;
            color: var(--text-primary);
        }

        .hostname {
            color: var(--success);
            font-size: 0.85rem;
        }

        .flow {
            color: var(--text-muted);
            font-family: 'Monaco', 'Menlo', monospace;
            font-size: 0.85rem;
        }

        .rtt {
            font-family: 'Monaco', 'Menlo', monospace;
        }

        .rtt.good { color: var(--success); }
        .rtt.medium { color: var(--warning); }
        .rtt.bad { color: var(--error); }
        .rtt.timeout { color: var(--error); }
        .rtt.neutral { color: var(--text-muted); }

        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
            gap: 1rem;
            background: var(--bg-secondary);
            padding: 1.5rem;
            border-radius: 8px;
            border: 1px solid var(--border);
        }

        .summary-item {
            text-align: center;
        }

        .summary-item .value {
            font-size: 1.5rem;
            font-weight: 600;
            color: var(--accent);
        }

        .summary-item .label {
            color: var(--text-muted);
            font-size: 0.8rem;
            text-transform: uppercase;
        }

        footer {
            text-align: center;
            margin-top: 2rem;
            padding-top: 1rem;
            border-top: 1px solid var(--border);
            color: var(--text-muted);
            font-size: 0.8rem;
        }

        @media (max-width: 768px) {
            body { padding: 1rem; }
            h1 { font-size: 1.5rem; }
            th, td { padding: 0.5rem; font-size: 0.85rem; }
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>{{.Title}}</h1>
            <p class="subtitle">Generated by paris-traceroute</p>
        </header>

        <div class="info-grid">
            <div class="info-card">
                <label>From</label>
                <value>{{.From}}</value>
            </div>
            <div class="info-card">
                <label>To</label>
                <value>{{.To}}</value>
            </div>
            <div class="info-card">
                <label>Protocol</label>
                <value>{{.Protocol | html}}</value>
            </div>
        </div>

        <table>
            <thead>
                <tr>
                    <th>Hop</th>
                    <th>Type</th>
                    <th>Address</th>
                    <th>Hostname</th>
                    <th>Flow</th>
                    <th>RTT</th>
                </tr>
            </thead>
            <tbody>
                {{range .Hops}}
                {{$hop := .Number}}
                {{range .Entries}}
                <tr>
                    <td class="hop-num">{{$hop}}</td>
                    <td>{{.Type}}</td>
                    <td class="ip">{{.Address}}</td>
                    <td class="hostname">{{if .Hostname}}{{.Hostname}}{{else}}-{{end}}</td>
                    <td class="flow">{{.FlowID}}</td>
                    <td class="rtt {{.RTTClass}}">{{.RTT}}</td>
                </tr>
                {{end}}
                {{end}}
            </tbody>
        </table>

        <div class="summary">
            <div class="summary-item">
                <div class="value">{{.Summary.TotalHops}}</div>
                <div class="label">Hops</div>
            </div>
            <div class="summary-item">
                <div class="value">{{.Summary.Interfaces}}</div>
                <div class="label">Interfaces</div>
            </div>
            <div class="summary-item">
                <div class="value">{{.Summary.Stars}}</div>
                <div class="label">Unresponsive</div>
            </div>
        </div>

        <footer>
            <p>Generated by <strong>paris-traceroute</strong> on {{formatTime .GeneratedAt}}</p>
        </footer>
    </div>
</body>
</html>
`
