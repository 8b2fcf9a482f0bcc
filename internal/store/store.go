// Package store implements the Asset Store: a single-file sqlite database
// of domains, subdomains, IP addresses and their links, with
// de-duplicating ("idempotent") inserts and a filter-language query
// surface.
package store

import (
	"context"

	"github.com/corvidrecon/corvid/internal/asset"
)

// FieldSet narrows which columns a list/filter query returns. FieldAll
// returns full rows; FieldIDOnly is for callers that only need
// identifiers.
type FieldSet int

const (
	FieldAll FieldSet = iota
	FieldIDOnly
)

// Store is the Asset Store contract.
type Store interface {
	InsertDomain(ctx context.Context, value string) (int64, error)
	FindDomain(ctx context.Context, value string) (int64, bool, error)

	InsertSubdomain(ctx context.Context, value, domainValue string) (wasNew bool, id int64, err error)
	InsertIpAddr(ctx context.Context, family, value string) (wasNew bool, id int64, err error)
	InsertLink(ctx context.Context, subdomainID, ipAddrID int64) (wasNew bool, id int64, err error)

	// InsertObject dispatches over the Object variant. The Subdomain
	// variant here assumes DomainID is already resolved — see
	// asset.SubdomainObject's doc comment.
	InsertObject(ctx context.Context, obj asset.Object) (wasNew bool, id int64, err error)

	ListDomains(ctx context.Context) ([]asset.Domain, error)
	FilterDomains(ctx context.Context, f Filter) ([]asset.Domain, error)

	ListSubdomains(ctx context.Context, fs FieldSet) ([]asset.Subdomain, error)
	FilterSubdomains(ctx context.Context, f Filter, fs FieldSet) ([]asset.Subdomain, error)

	ListIpAddrs(ctx context.Context, fs FieldSet) ([]asset.IpAddr, error)
	FilterIpAddrs(ctx context.Context, f Filter, fs FieldSet) ([]asset.IpAddr, error)

	ListLinks(ctx context.Context) ([]asset.SubdomainIpAddr, error)
	FilterLinks(ctx context.Context, f Filter) ([]asset.SubdomainIpAddr, error)

	Close() error
}
