// Package geoip wraps a MaxMind GeoLite2-format database for the
// geoip_lookup Lua binding, returning a structured country/city/lat/long
// result. Grounded on original_source/src/runtime/geoip.rs's
// geoip_lookup, using oschwald/maxminddb-golang — the library the
// AdGuardDNS example repo pulls in for the same purpose.
package geoip

import (
	"fmt"
	"net"

	"github.com/oschwald/maxminddb-golang"
)

// Result is the structured shape returned to scripts, serialized to a
// Lua table by the binding layer.
type Result struct {
	CountryISOCode string  `json:"country_iso_code"`
	CountryName    string  `json:"country_name"`
	City           string  `json:"city"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

// Resolver looks up IP addresses against an open MaxMind database.
type Resolver struct {
	reader *maxminddb.Reader
}

// Open reads the database at path into memory.
func Open(path string) (*Resolver, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: failed to open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

func (r *Resolver) Close() error {
	return r.reader.Close()
}

// record mirrors the subset of the GeoLite2-City schema this package
// cares about.
type record struct {
	Country struct {
		ISOCode string            `maxminddb:"iso_code"`
		Names   map[string]string `maxminddb:"names"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
	Location struct {
		Latitude  float64 `maxminddb:"latitude"`
		Longitude float64 `maxminddb:"longitude"`
	} `maxminddb:"location"`
}

// Lookup resolves ip to its geographic location.
func (r *Resolver) Lookup(ip net.IP) (Result, error) {
	var rec record
	if err := r.reader.Lookup(ip, &rec); err != nil {
		return Result{}, fmt.Errorf("geoip: lookup failed: %w", err)
	}
	return Result{
		CountryISOCode: rec.Country.ISOCode,
		CountryName:    rec.Country.Names["en"],
		City:           rec.City.Names["en"],
		Latitude:       rec.Location.Latitude,
		Longitude:      rec.Location.Longitude,
	}, nil
}
