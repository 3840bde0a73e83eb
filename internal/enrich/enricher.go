// Package enrich annotates discovered hops with reverse-DNS hostnames.
// spec.md §1 names "formatted to text by an external collaborator" as the
// only enrichment seam in scope; ASN and GeoIP annotation (which the
// teacher's enricher also offered, backed by Team Cymru/ip-api.com/
// MaxMind) are out of scope here and have been dropped (see DESIGN.md).
package enrich

import (
	"context"
	"net"
	"sync"
)

// Enricher resolves hostnames for discovered hop addresses.
type Enricher struct {
	config EnricherConfig
	rdns   *RDNSResolver
}

// EnricherConfig holds configuration for the enricher.
type EnricherConfig struct {
	EnableRDNS  bool
	RDNSTimeout int // milliseconds
	CacheSize   int
}

// DefaultEnricherConfig returns default enricher configuration.
func DefaultEnricherConfig() EnricherConfig {
	return EnricherConfig{
		EnableRDNS:  true,
		RDNSTimeout: 2000,
		CacheSize:   1000,
	}
}

// NewEnricher creates a new enricher with the given configuration.
func NewEnricher(config EnricherConfig) *Enricher {
	e := &Enricher{config: config}
	if config.EnableRDNS {
		e.rdns = NewRDNSResolver(DefaultRDNSConfig())
	}
	return e
}

// EnrichmentResult contains the results of IP enrichment.
type EnrichmentResult struct {
	Hostname string
}

// EnrichIP resolves a hostname for a single IP.
func (e *Enricher) EnrichIP(ctx context.Context, ip net.IP) *EnrichmentResult {
	if ip == nil || e.rdns == nil {
		return &EnrichmentResult{}
	}
	hostname, _ := e.rdns.Lookup(ctx, ip)
	return &EnrichmentResult{Hostname: hostname}
}

// EnrichIPs resolves hostnames for multiple IPs concurrently, deduplicated
// by address, bounded to 10 concurrent lookups at a time.
func (e *Enricher) EnrichIPs(ctx context.Context, ips []net.IP) map[string]*EnrichmentResult {
	results := make(map[string]*EnrichmentResult)
	if len(ips) == 0 {
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, 10)

	seen := make(map[string]bool)
	uniqueIPs := make([]net.IP, 0, len(ips))
	for _, ip := range ips {
		if ip != nil {
			ipStr := ip.String()
			if !seen[ipStr] {
				seen[ipStr] = true
				uniqueIPs = append(uniqueIPs, ip)
			}
		}
	}

	for _, ip := range uniqueIPs {
		wg.Add(1)
		go func(ip net.IP) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result := e.EnrichIP(ctx, ip)

			mu.Lock()
			results[ip.String()] = result
			mu.Unlock()
		}(ip)
	}

	wg.Wait()
	return results
}

// Close releases resources held by the enricher.
func (e *Enricher) Close() error {
	if e.rdns != nil {
		return e.rdns.Close()
	}
	return nil
}
