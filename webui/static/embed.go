// Package static embeds the web UI page template and its assets.
package static

import (
	"embed"
	"io/fs"
)

// FS holds index.html (a html/template) plus css/ and js/.
//
//go:embed index.html css js
var FS embed.FS

// Assets returns the files served under /static/.
func Assets() fs.FS {
	return FS
}

// PageTemplate returns the source of the main page template.
func PageTemplate() (string, error) {
	data, err := FS.ReadFile("index.html")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
