// Package view renders the admin pages from embedded html/template files.
//
// Every page template defines a "content" block and is rendered inside
// layout.html. The layout receives a Page, whose Layout carries the
// navigation context explicitly: the active menu and the public API path.
package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/atinyakov/phototrack-admin/internal/models"
)

//go:embed templates
var templateFS embed.FS

const layoutFile = "layout.html"

// Menu entries of the navigation bar.
const (
	MenuHome  = "home"
	MenuAbout = "about"
	MenuUsers = "users"
	MenuSites = "sites"
)

// Layout is the navigation context of a page.
type Layout struct {
	// Menu is the active navigation entry.
	Menu string
	// APIPath is the API base URL as seen by browsers, for images and archives.
	APIPath string
}

// Page is the view model handed to a template.
type Page struct {
	Layout
	// Template is the page template, relative to the templates directory.
	Template string
	// Title is shown in the browser tab.
	Title string
	// Error is shown as a banner when set.
	Error string
	// Data is the page-specific state.
	Data any
}

// ErrWrite wraps a failure to send a rendered page. The status line has
// already been written when it is returned.
var ErrWrite = errors.New("write response")

// Renderer executes page templates inside the layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the layout and every page template.
func NewRenderer() (*Renderer, error) {
	root, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}

	base, err := template.New(layoutFile).Funcs(funcs).ParseFS(root, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: map[string]*template.Template{}}
	err = fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == layoutFile || !strings.HasSuffix(path, ".html") {
			return nil
		}
		t, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(root, path); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		r.pages[path] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

// Render writes page with the given status. Nothing is written when the
// template fails, so the caller can still answer with an error.
func (r *Renderer) Render(w http.ResponseWriter, status int, page *Page) error {
	t, ok := r.pages[page.Template]
	if !ok {
		return fmt.Errorf("unknown template %q", page.Template)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutFile, page); err != nil {
		return fmt.Errorf("render %s: %w", page.Template, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

var funcs = template.FuncMap{
	"imageURL":   models.PhotoImageURL,
	"archiveURL": models.SiteArchiveURL,
	"coord":      models.FormatCoord,
	"active": func(layout Layout, menu string) string {
		if layout.Menu == menu {
			return "active"
		}
		return ""
	},
}
