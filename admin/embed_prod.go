//go:build embed_admin

// Package admin exposes the built studio admin UI. With the embed_admin tag
// the contents of admin/dist are compiled into the binary.
package admin

import (
	"embed"
	"io/fs"
)

//go:embed all:dist
var distFS embed.FS

// DistFS returns the embedded admin UI rooted at dist/.
func DistFS() fs.FS {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("admin: dist sub-filesystem: " + err.Error())
	}
	return sub
}
