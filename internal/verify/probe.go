// Package verify checks, over DNS itself, that an appliance actually
// sinkholes what its blacklist says it should. The probe is advisory: it
// never changes the outcome of a run, only annotates the report.
package verify

import (
	"context"
	"net"
	"time"

	"github.com/miekg/dns"

	"holesync/internal/config"
	"holesync/internal/domain"
)

type Prober struct {
	client *dns.Client
}

func NewProber(timeout time.Duration) *Prober {
	return &Prober{
		client: &dns.Client{Timeout: timeout},
	}
}

// Probe resolves each domain against the device's DNS listener and reports
// whether the response looks sinkholed.
func (p *Prober) Probe(ctx context.Context, dev config.DeviceConfig, domains []string) []domain.ProbeResult {
	server := dev.DNSAddress
	if server == "" {
		host := dev.Address
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		server = net.JoinHostPort(host, "53")
	}

	results := make([]domain.ProbeResult, 0, len(domains))
	for _, name := range domains {
		results = append(results, p.probeOne(ctx, server, name))
	}
	return results
}

func (p *Prober) probeOne(ctx context.Context, server, name string) domain.ProbeResult {
	result := domain.ProbeResult{Domain: name}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)

	resp, _, err := p.client.ExchangeContext(ctx, msg, server)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Sinkholed = sinkholed(resp)
	return result
}

// sinkholed recognizes the blocking styles appliances use: a null-routed
// answer (0.0.0.0 or ::), NXDOMAIN, or an empty NOERROR answer.
func sinkholed(resp *dns.Msg) bool {
	if resp.Rcode == dns.RcodeNameError {
		return true
	}
	if resp.Rcode != dns.RcodeSuccess {
		return false
	}
	if len(resp.Answer) == 0 {
		return true
	}
	for _, rr := range resp.Answer {
		switch record := rr.(type) {
		case *dns.A:
			if record.A.IsUnspecified() {
				return true
			}
		case *dns.AAAA:
			if record.AAAA.IsUnspecified() {
				return true
			}
		}
	}
	return false
}
