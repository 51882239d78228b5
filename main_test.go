package main

import (
	"io/fs"
	"testing"

	"timetracker/internal/clserver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedTemplates(t *testing.T) {
	// en production les templates sont minifiés avant le parsing
	for _, production := range []bool{false, true} {
		tmpl, err := clserver.GetTemplates(templatesFS, production)
		require.NoError(t, err)
		assert.NotNil(t, tmpl.Lookup("index"))
	}
}

func TestEmbeddedRessources(t *testing.T) {
	for _, path := range []string{"ressources/js/timer.js", "ressources/css/timer.css"} {
		content, err := fs.ReadFile(staticFS, path)
		require.NoError(t, err, path)
		assert.NotEmpty(t, content)
	}
}
