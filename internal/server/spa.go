package server

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

const (
	indexCacheControl = "no-cache, no-store, must-revalidate"
	assetCacheControl = "public, max-age=31536000, immutable"
)

// newSPAHandler returns the catch-all handler for the admin UI. In dev mode it
// proxies to the Vite dev server on :5173. Otherwise it serves distFS, or a
// placeholder page when the UI was not embedded. API paths always get a JSON
// 404.
func newSPAHandler(devMode bool, distFS fs.FS) http.HandlerFunc {
	switch {
	case devMode:
		return newDevProxyHandler()
	case distFS == nil:
		return placeholderHandler
	default:
		return newEmbeddedHandler(distFS)
	}
}

func isAPIPath(path string) bool {
	for _, prefix := range []string{"/api", "/admin/api"} {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func apiNotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "NOT_FOUND", "The requested API endpoint does not exist", nil)
}

func newDevProxyHandler() http.HandlerFunc {
	target := &url.URL{Scheme: "http", Host: "localhost:5173"}
	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		slog.Warn("SPA dev proxy error (is Vite running?)",
			"error", err,
			"path", r.URL.Path,
		)
		Error(w, http.StatusBadGateway, "DEV_PROXY_ERROR",
			"Admin UI dev server not reachable. Is Vite running on :5173?", nil)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			apiNotFound(w)
			return
		}
		proxy.ServeHTTP(w, r)
	}
}

// newEmbeddedHandler serves files from distFS under /admin/. Unknown or
// invalid paths get index.html so client-side routes resolve.
func newEmbeddedHandler(distFS fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			apiNotFound(w)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")

		name := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/admin"), "/")
		if name != "" && name != "index.html" && fs.ValidPath(name) {
			if info, err := fs.Stat(distFS, name); err == nil && !info.IsDir() {
				data, err := fs.ReadFile(distFS, name)
				if err == nil {
					if strings.HasPrefix(name, "assets/") {
						w.Header().Set("Cache-Control", assetCacheControl)
					}
					http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
					return
				}
			}
		}

		index, err := fs.ReadFile(distFS, "index.html")
		if err != nil {
			slog.Error("admin index.html missing from embedded assets", "error", err)
			placeholderHandler(w, r)
			return
		}
		w.Header().Set("Cache-Control", indexCacheControl)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(index)
	}
}

func placeholderHandler(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r.URL.Path) {
		apiNotFound(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Mithril Studio</title></head>
<body>
<h1>Mithril Studio</h1>
<p>Admin UI not embedded. Build with <code>-tags embed_admin</code> to include it.</p>
</body>
</html>`)
}
