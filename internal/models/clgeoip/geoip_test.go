package clgeoip

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.mmdb"))
	assert.Error(t, err)
}

func TestNilLocator(t *testing.T) {
	var l *Locator
	assert.Equal(t, "", l.Country("81.2.69.142"))
	assert.NoError(t, l.Close())
}

func TestCountryWithoutReader(t *testing.T) {
	l := &Locator{}
	assert.Equal(t, "", l.Country("not-an-ip"))
	assert.Equal(t, "", l.Country("127.0.0.1"))
}
