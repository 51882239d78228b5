package clgeoip

import (
	"fmt"
	"net/netip"

	"github.com/oschwald/geoip2-golang/v2"
	"github.com/rs/zerolog/log"
)

// Locator résout le code pays ISO d'une IP à partir d'une base MaxMind
type Locator struct {
	reader *geoip2.Reader
}

// Open ouvre la base GeoIP2/GeoLite2 Country ou City
func Open(path string) (*Locator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ouverture base geoip %s: %w", path, err)
	}
	return &Locator{reader: reader}, nil
}

// Country retourne "" pour une IP invalide, privée ou inconnue
func (l *Locator) Country(ip string) string {
	if l == nil || l.reader == nil {
		return ""
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil || addr.IsPrivate() || addr.IsLoopback() {
		return ""
	}
	record, err := l.reader.Country(addr)
	if err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("geoip lookup")
		return ""
	}
	return record.Country.ISOCode
}

func (l *Locator) Close() error {
	if l == nil || l.reader == nil {
		return nil
	}
	return l.reader.Close()
}
