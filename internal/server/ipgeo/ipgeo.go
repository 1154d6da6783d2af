// Package ipgeo maps client addresses to countries with a MaxMind MMDB file.
package ipgeo

import (
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Checker resolves IP addresses to ISO 3166-1 alpha-2 country codes. A nil
// Checker is valid and only classifies local addresses.
type Checker struct {
	reader *maxminddb.Reader
}

// Open opens the MMDB file at path.
func Open(path string) (*Checker, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Checker{reader: r}, nil
}

// Close releases the database.
func (c *Checker) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// cgnat is the shared address space 100.64.0.0/10 used by carrier NATs and
// overlay networks.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// CountryCode returns the country of ip, "local" for loopback, private,
// link-local and unspecified addresses, "cgnat" for the shared address space
// and "" when unknown.
func (c *Checker) CountryCode(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsUnspecified(), addr.IsLinkLocalUnicast():
		return "local"
	case cgnat.Contains(addr):
		return "cgnat"
	}
	if c == nil || c.reader == nil {
		return ""
	}
	var rec countryRecord
	if err := c.reader.Lookup(addr).Decode(&rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}
