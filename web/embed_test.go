package web

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateFS(t *testing.T) {
	var f fs.FS
	require.NotPanics(t, func() { f = TemplateFS() })
	_, err := fs.Stat(f, "dashboard.html")
	assert.NoError(t, err)
}

func TestStaticFS(t *testing.T) {
	var f fs.FS
	require.NotPanics(t, func() { f = StaticFS() })
	for _, name := range []string{"app.js", "style.css"} {
		_, err := fs.Stat(f, name)
		assert.NoError(t, err, name)
	}
}
