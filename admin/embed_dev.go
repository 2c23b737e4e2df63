//go:build !embed_admin

// Package admin exposes the built studio admin UI. Builds without the
// embed_admin tag carry no assets; the server then shows a placeholder page
// or proxies to the Vite dev server.
package admin

import "io/fs"

// DistFS returns nil: the admin UI is not embedded in this build.
func DistFS() fs.FS { return nil }
