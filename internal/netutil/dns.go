// Package netutil provides the narrow external-collaborator interfaces
// the dns and http_get Lua bindings sit on top of. Neither the teacher
// repo nor the Rust original touch the network directly from the store
// layer; this is enrichment from the rest of the retrieval pack,
// following owasp-amass's use of miekg/dns for resolution.
package netutil

import (
	"fmt"

	"github.com/miekg/dns"
)

// Resolver issues single-question DNS queries against a configured
// upstream server.
type Resolver struct {
	Server string // host:port, e.g. "1.1.1.1:53"
	Client *dns.Client
}

// NewResolver builds a Resolver against the given upstream server,
// defaulting the query timeout the way dns.Client does.
func NewResolver(server string) *Resolver {
	return &Resolver{Server: server, Client: new(dns.Client)}
}

// qtypes maps the lowercase record type names scripts pass in to their
// miekg/dns constant.
var qtypes = map[string]uint16{
	"a":     dns.TypeA,
	"aaaa":  dns.TypeAAAA,
	"cname": dns.TypeCNAME,
	"mx":    dns.TypeMX,
	"ns":    dns.TypeNS,
	"txt":   dns.TypeTXT,
	"soa":   dns.TypeSOA,
	"ptr":   dns.TypePTR,
}

// Lookup resolves name for the given record type ("a", "aaaa", "cname",
// "mx", "ns", "txt", "soa", "ptr") and returns each answer's string form.
func (r *Resolver) Lookup(name, qtype string) ([]string, error) {
	t, ok := qtypes[qtype]
	if !ok {
		return nil, fmt.Errorf("netutil: unsupported record type %q", qtype)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), t)
	msg.RecursionDesired = true

	in, _, err := r.Client.Exchange(msg, r.Server)
	if err != nil {
		return nil, fmt.Errorf("netutil: dns exchange failed: %w", err)
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("netutil: dns query failed: %s", dns.RcodeToString[in.Rcode])
	}

	out := make([]string, 0, len(in.Answer))
	for _, rr := range in.Answer {
		out = append(out, answerValue(rr))
	}
	return out, nil
}

// answerValue extracts the record-specific value from an RR, rather than
// its full zone-file text form.
func answerValue(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.CNAME:
		return v.Target
	case *dns.NS:
		return v.Ns
	case *dns.MX:
		return v.Mx
	case *dns.TXT:
		if len(v.Txt) > 0 {
			return v.Txt[0]
		}
		return ""
	case *dns.PTR:
		return v.Ptr
	default:
		return rr.String()
	}
}
