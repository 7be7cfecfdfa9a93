// Package resolver resolves the relay host for the client dialer, falling
// back to public DNS servers when the system resolver fails.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// publicDNS are queried in parallel if a local lookup fails.
var publicDNS = []string{
	"1.1.1.1",              // Cloudflare
	"1.0.0.1",              // Cloudflare
	"2606:4700:4700::1111", // Cloudflare
	"8.8.8.8",              // Google
	"8.8.4.4",              // Google
	"2001:4860:4860::8888", // Google
	"9.9.9.9",              // Quad9
	"149.112.112.112",      // Quad9
	"208.67.222.222",       // Cisco OpenDNS
	"208.67.220.220",       // Cisco OpenDNS
}

const (
	localTimeout  = 1 * time.Second
	remoteTimeout = 2 * time.Second
)

// Resolver looks up hosts. The zero value is not usable; use New.
type Resolver struct {
	local   func(ctx context.Context, host string) ([]string, error)
	remote  func(ctx context.Context, host, server string) ([]string, error)
	servers []string
}

// New returns a resolver that uses the system DNS first and public DNS
// second.
func New() *Resolver {
	return &Resolver{
		local:   (&net.Resolver{}).LookupHost,
		remote:  remoteLookupHost,
		servers: publicDNS,
	}
}

// Lookup resolves host to one IP address, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	lctx, cancel := context.WithTimeout(ctx, localTimeout)
	ips, err := r.local(lctx, host)
	cancel()
	if err == nil {
		if ip, ok := pick(ips); ok {
			return ip, nil
		}
	}

	return r.race(ctx, host)
}

// race queries every public server and returns the first success.
func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, remoteTimeout)
	defer cancel()

	results := make(chan result, len(r.servers))
	for _, server := range r.servers {
		go func(server string) {
			ips, err := r.remote(ctx, host, server)
			ip, ok := pick(ips)
			if err == nil && !ok {
				err = errors.New("no IPs returned")
			}
			results <- result{ip: ip, err: err}
		}(server)
	}

	failures := 0
	for range r.servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("resolve %s: public DNS race timed out", host)
		}
	}
	return "", fmt.Errorf("resolve %s: all %d public DNS servers failed", host, failures)
}

// DialContext resolves the host part of addr and dials the result. It
// matches the websocket.Dialer.NetDialContext signature.
func (r *Resolver) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ip, err := r.Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// remoteLookupHost queries a specific DNS server for host.
func remoteLookupHost(ctx context.Context, host, server string) ([]string, error) {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
	return r.LookupHost(ctx, host)
}

func pick(ips []string) (string, bool) {
	if len(ips) == 0 {
		return "", false
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, true
		}
	}
	return ips[0], true
}
