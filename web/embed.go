// Package web embeds the dashboard page template and its static assets so
// the binary serves the UI without external files.
//
// Usage in the API server:
//
//	pages, err := template.ParseFS(web.TemplateFS(), "*.html")
//	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS())))
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates static
var assets embed.FS

// TemplateFS returns a filesystem rooted at the embedded templates/ directory.
func TemplateFS() fs.FS { return sub("templates") }

// StaticFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS.
func StaticFS() fs.FS { return sub("static") }

// sub panics like template.Must: the directories are fixed at compile time.
func sub(dir string) fs.FS {
	f, err := fs.Sub(assets, dir)
	if err != nil {
		panic(fmt.Sprintf("web: %s: %v", dir, err))
	}
	return f
}
