// Package asset defines the typed entities stored by the Asset Store and
// the tagged Object variant scripts emit over the wire.
package asset

import (
	"encoding/json"
	"fmt"
)

// Domain is a second-level (or higher) DNS name a target owns outright.
type Domain struct {
	ID    int64  `json:"id" db:"id"`
	Value string `json:"value" db:"value"`
}

// Subdomain is a fully-qualified name hanging off a Domain.
type Subdomain struct {
	ID       int64  `json:"id" db:"id"`
	DomainID int64  `json:"domain_id" db:"domain_id"`
	Value    string `json:"value" db:"value"`
}

// IP address families recognized by IpAddr.Family.
const (
	Family4 = "4"
	Family6 = "6"
)

// IpAddr is a single IPv4 or IPv6 address.
type IpAddr struct {
	ID     int64  `json:"id" db:"id"`
	Family string `json:"family" db:"family"`
	Value  string `json:"value" db:"value"`
}

// SubdomainIpAddr links a Subdomain to an IpAddr it was observed to resolve to.
type SubdomainIpAddr struct {
	ID          int64 `json:"id" db:"id"`
	SubdomainID int64 `json:"subdomain_id" db:"subdomain_id"`
	IpAddrID    int64 `json:"ip_addr_id" db:"ip_addr_id"`
}

// ObjectKind discriminates the Object tagged variant on the wire.
type ObjectKind string

const (
	KindSubdomain       ObjectKind = "Subdomain"
	KindIpAddr          ObjectKind = "IpAddr"
	KindSubdomainIpAddr ObjectKind = "SubdomainIpAddr"
)

// SubdomainObject is the wire shape of a Subdomain emission. Unlike the
// insert_subdomain(value, domain_value) shortcut, DomainID here is
// already resolved — this is the form scripts use.
type SubdomainObject struct {
	DomainID int64  `json:"domain_id"`
	Value    string `json:"value"`
}

type IpAddrObject struct {
	Family string `json:"family"`
	Value  string `json:"value"`
}

type SubdomainIpAddrObject struct {
	SubdomainID int64 `json:"subdomain_id"`
	IpAddrID    int64 `json:"ip_addr_id"`
}

// Object is the tagged variant produced by scripts and carried only on the
// wire between the Reporter and the Supervisor — it is never persisted
// directly. Exactly one of the Subdomain/IpAddr/SubdomainIpAddr fields is
// set; Kind names which one.
type Object struct {
	Kind            ObjectKind
	Subdomain       *SubdomainObject
	IpAddr          *IpAddrObject
	SubdomainIpAddr *SubdomainIpAddrObject
}

// MarshalJSON renders Object as an externally-tagged enum, e.g.
// {"Subdomain":{"domain_id":1,"value":"a.example.com"}}, matching the
// wire shape the original Rust implementation's serde derive produces.
func (o Object) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case KindSubdomain:
		return json.Marshal(map[string]*SubdomainObject{"Subdomain": o.Subdomain})
	case KindIpAddr:
		return json.Marshal(map[string]*IpAddrObject{"IpAddr": o.IpAddr})
	case KindSubdomainIpAddr:
		return json.Marshal(map[string]*SubdomainIpAddrObject{"SubdomainIpAddr": o.SubdomainIpAddr})
	default:
		return nil, fmt.Errorf("asset: unknown object kind %q", o.Kind)
	}
}

func (o *Object) UnmarshalJSON(data []byte) error {
	var wire map[string]json.RawMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if len(wire) != 1 {
		return fmt.Errorf("asset: object must have exactly one tag, got %d", len(wire))
	}
	for tag, raw := range wire {
		switch ObjectKind(tag) {
		case KindSubdomain:
			var v SubdomainObject
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			o.Kind, o.Subdomain = KindSubdomain, &v
		case KindIpAddr:
			var v IpAddrObject
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			o.Kind, o.IpAddr = KindIpAddr, &v
		case KindSubdomainIpAddr:
			var v SubdomainIpAddrObject
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			o.Kind, o.SubdomainIpAddr = KindSubdomainIpAddr, &v
		default:
			return fmt.Errorf("asset: unknown object tag %q", tag)
		}
	}
	return nil
}

// Validate checks the shape of an Object before it reaches the store,
// catching the mistakes a script author is most likely to make, without
// relaxing the referential-integrity checks the store itself still
// performs.
func (o Object) Validate() error {
	switch o.Kind {
	case KindSubdomain:
		if o.Subdomain == nil || o.Subdomain.Value == "" {
			return fmt.Errorf("asset: subdomain value must not be empty")
		}
		if o.Subdomain.DomainID <= 0 {
			return fmt.Errorf("asset: subdomain domain_id must be positive")
		}
	case KindIpAddr:
		if o.IpAddr == nil || o.IpAddr.Value == "" {
			return fmt.Errorf("asset: ip address value must not be empty")
		}
		if o.IpAddr.Family != Family4 && o.IpAddr.Family != Family6 {
			return fmt.Errorf("asset: ip address family must be %q or %q, got %q", Family4, Family6, o.IpAddr.Family)
		}
	case KindSubdomainIpAddr:
		if o.SubdomainIpAddr == nil || o.SubdomainIpAddr.SubdomainID <= 0 || o.SubdomainIpAddr.IpAddrID <= 0 {
			return fmt.Errorf("asset: subdomain/ip link requires positive ids")
		}
	default:
		return fmt.Errorf("asset: unknown object kind %q", o.Kind)
	}
	return nil
}
