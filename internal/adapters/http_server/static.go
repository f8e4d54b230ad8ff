package httpserver

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"sabor_menu/internal/domain"
)

// mountStatic wires the asset routes: images, audio, menu documents,
// and the front-end bundle. A missing file yields the JSON 404 envelope
// rather than the stdlib plain-text page.
func (h *Handlers) mountStatic(mux *chi.Mux) {
	mux.Get("/images/*", serveDir(h.Static.Images))
	mux.Get("/audio/*", serveDir(h.Static.Audio))
	mux.Get("/menus/*", serveDir(h.Static.Menus))
	mux.NotFound(h.serveFrontend)
}

func serveDir(root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		path, ok := resolve(root, rel)
		if !ok {
			writeError(w, domain.ErrNotFound)
			return
		}
		// http.ServeFile infers the mime type from the extension,
		// which covers the pdf/html special cases on the menus route.
		http.ServeFile(w, r, path)
	}
}

// serveFrontend serves the single-page bundle: the requested file when
// it exists, index.html for client-side routes, JSON 404 for anything
// under /api.
func (h *Handlers) serveFrontend(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, domain.ErrNotFound)
		return
	}
	rel := strings.TrimPrefix(r.URL.Path, "/")
	if rel == "" {
		rel = "index.html"
	}
	if path, ok := resolve(h.Static.Frontend, rel); ok {
		http.ServeFile(w, r, path)
		return
	}
	if path, ok := resolve(h.Static.Frontend, "index.html"); ok {
		http.ServeFile(w, r, path)
		return
	}
	writeError(w, domain.ErrNotFound)
}

// resolve joins rel under root and confirms the result is a regular
// file still inside root. Rejects traversal out of the tree.
func resolve(root, rel string) (string, bool) {
	if root == "" || rel == "" {
		return "", false
	}
	path := filepath.Join(root, filepath.FromSlash(rel))
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if absPath != absRoot && !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) {
		return "", false
	}
	st, err := os.Stat(absPath)
	if err != nil || st.IsDir() {
		return "", false
	}
	return absPath, true
}
