package geoip

import (
	"net"

	"github.com/oschwald/geoip2-golang"
)

// Provider wraps the GeoIP2 database reader to provide country lookup functionality.
type Provider struct {
	db       *geoip2.Reader
	lookupIP func(host string) ([]net.IP, error)
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db, lookupIP: net.LookupIP}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// CountryCode looks up the ISO country code (e.g., "US", "DE") of a game server host.
// Host names are resolved first. It returns an empty string if the country cannot be determined.
func (p *Provider) CountryCode(host string) string {
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := p.lookupIP(host)
		if err != nil || len(ips) == 0 {
			return ""
		}
		ip = ips[0]
	}

	record, err := p.db.Country(ip)
	if err != nil {
		return ""
	}

	return record.Country.IsoCode
}
