// File: backend/internal/dnsresolver/resolver.go
package dnsresolver

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fntelecomllc/rdapflow/backend/internal/config"
	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
	"github.com/miekg/dns"
)

const (
	localhostName = "localhost"
	loopbackV4    = "127.0.0.1"
	loopbackV6    = "::1"
	maxCNAMEDepth = 8
)

// Resolver answers hostname lookups within one forced address family and
// caches the answers so a validation run never repeats a DNS query. It is
// safe for concurrent use.
type Resolver struct {
	servers []string
	timeout int // seconds, applied per exchange

	mu      sync.Mutex
	cacheV4 map[string][]net.IP
	cacheV6 map[string][]net.IP
}

// New builds a resolver from configuration. Explicitly configured resolvers
// are used first; system resolvers from /etc/resolv.conf are appended when
// enabled, mirroring how the machine itself would resolve.
func New(cfg config.DNSResolverConfig) (*Resolver, error) {
	var servers []string
	servers = append(servers, cfg.Resolvers...)

	if cfg.UseSystemResolvers {
		sysConfig, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			log.Printf("DNSResolver: Warning - Could not load system resolvers: %v", err)
		} else {
			for _, serverIP := range sysConfig.Servers {
				servers = append(servers, net.JoinHostPort(serverIP, sysConfig.Port))
			}
		}
	}

	if len(servers) == 0 {
		return nil, fmt.Errorf("no DNS resolvers available")
	}

	timeout := cfg.QueryTimeoutSeconds
	if timeout <= 0 {
		timeout = config.DefaultDNSTimeoutSeconds
	}

	return &Resolver{
		servers: servers,
		timeout: timeout,
		cacheV4: make(map[string][]net.IP),
		cacheV6: make(map[string][]net.IP),
	}, nil
}

// Resolve returns the first address of the requested family for host, or
// rdap.ErrNoAddress when the family has none. The loopback alias resolves to
// the literal loopback address of the family without touching the network.
func (r *Resolver) Resolve(host string, protocol rdap.NetworkProtocol) (net.IP, error) {
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		if (protocol == rdap.IPv4) == (ip.To4() != nil) {
			return ip, nil
		}
		return nil, rdap.ErrNoAddress
	}

	addrs := r.addresses(host, protocol)
	if len(addrs) == 0 {
		return nil, rdap.ErrNoAddress
	}
	return addrs[0], nil
}

// HasAddresses reports whether host has any address of the requested family.
func (r *Resolver) HasAddresses(host string, protocol rdap.NetworkProtocol) bool {
	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		return (protocol == rdap.IPv4) == (ip.To4() != nil)
	}
	return len(r.addresses(host, protocol)) > 0
}

func (r *Resolver) addresses(host string, protocol rdap.NetworkProtocol) []net.IP {
	fqdn := ensureFQDN(host)

	r.mu.Lock()
	defer r.mu.Unlock()

	cache := r.cacheV4
	qtype := dns.TypeA
	if protocol == rdap.IPv6 {
		cache = r.cacheV6
		qtype = dns.TypeAAAA
	}

	if addrs, ok := cache[fqdn]; ok {
		return addrs
	}

	var addrs []net.IP
	if isLoopbackAlias(host) {
		if protocol == rdap.IPv6 {
			addrs = []net.IP{net.ParseIP(loopbackV6)}
		} else {
			addrs = []net.IP{net.ParseIP(loopbackV4)}
		}
	} else {
		addrs = r.lookup(fqdn, qtype)
	}
	cache[fqdn] = addrs
	return addrs
}

// lookup queries the configured servers in order until one answers, following
// CNAME chains up to a fixed depth.
func (r *Resolver) lookup(fqdn string, qtype uint16) []net.IP {
	var results []net.IP
	visited := make(map[string]bool)
	currentName := fqdn

	client := &dns.Client{Timeout: time.Duration(r.timeout) * time.Second}

	for depth := 0; depth < maxCNAMEDepth; depth++ {
		if visited[currentName] {
			log.Printf("DNSResolver: Detected CNAME loop involving: %s", currentName)
			break
		}
		visited[currentName] = true

		msg := new(dns.Msg)
		msg.SetQuestion(currentName, qtype)
		msg.RecursionDesired = true

		resp := r.exchange(client, msg, currentName, qtype)
		if resp == nil {
			break
		}

		nextName := ""
		for _, answer := range resp.Answer {
			switch rec := answer.(type) {
			case *dns.A:
				if qtype == dns.TypeA {
					results = append(results, rec.A)
				}
			case *dns.AAAA:
				if qtype == dns.TypeAAAA {
					results = append(results, rec.AAAA)
				}
			case *dns.CNAME:
				nextName = rec.Target
			}
		}

		if len(results) > 0 || nextName == "" {
			break
		}
		log.Printf("DNSResolver: Following CNAME: %s -> %s", currentName, nextName)
		currentName = nextName
	}

	log.Printf("DNSResolver: Resolved %s [%s] -> %d record(s)", fqdn, dns.TypeToString[qtype], len(results))
	return results
}

func (r *Resolver) exchange(client *dns.Client, msg *dns.Msg, name string, qtype uint16) *dns.Msg {
	for _, server := range r.servers {
		resp, _, err := client.Exchange(msg, server)
		if err != nil {
			log.Printf("DNSResolver: Error resolving %s [%s] via %s: %v", name, dns.TypeToString[qtype], server, err)
			continue
		}
		return resp
	}
	return nil
}

func isLoopbackAlias(host string) bool {
	return strings.EqualFold(strings.TrimSuffix(host, "."), localhostName)
}

func ensureFQDN(host string) string {
	if strings.HasSuffix(host, ".") {
		return host
	}
	return host + "."
}

// HostnameFromURL extracts the hostname portion of a URL, or "" on failure.
func HostnameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		log.Printf("DNSResolver: Failed to parse URL: %s", rawURL)
		return ""
	}
	return u.Hostname()
}

// ValidateEndpointAddresses records the pre-network findings for a run: the
// target resolving to nothing at all, or lacking service over the address
// family the run is forced onto. It never opens a connection. The return is
// false when the target has no addresses in either family.
func ValidateEndpointAddresses(qctx *rdap.QueryContext, targetURL string) bool {
	hostname := HostnameFromURL(targetURL)
	if hostname == "" {
		qctx.AddError(rdap.CodeNoAddresses, rdap.NoResponse,
			"Unable to resolve an IP address endpoint using DNS.")
		return false
	}

	hasV4 := qctx.Resolver.HasAddresses(hostname, rdap.IPv4)
	hasV6 := qctx.Resolver.HasAddresses(hostname, rdap.IPv6)

	if !hasV4 && !hasV6 {
		qctx.AddError(rdap.CodeNoAddresses, rdap.NoResponse,
			"Unable to resolve an IP address endpoint using DNS.")
		return false
	}

	if qctx.Protocol() == rdap.IPv4 && !hasV4 {
		qctx.AddError(rdap.CodeNoIPv4Service, hostname,
			"The RDAP service is not provided over IPv4 or contains invalid addresses. See section 1.8 of the RDAP_Technical_Implementation_Guide_2_1.")
	}
	if qctx.Protocol() == rdap.IPv6 && !hasV6 {
		qctx.AddError(rdap.CodeNoIPv6Service, hostname,
			"The RDAP service is not provided over IPv6 or contains invalid addresses. See section 1.8 of the RDAP_Technical_Implementation_Guide_2_1.")
	}
	return true
}
