package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/phototrack-admin/internal/view"
)

// base carries what every controller needs to answer.
type base struct {
	View   *view.Renderer
	Logger *zap.Logger
}

// render writes page, falling back to a plain 500 when the template fails.
// Nothing more is written once the page has been sent.
func (b base) render(w http.ResponseWriter, r *http.Request, status int, page *view.Page) {
	err := b.View.Render(w, status, page)
	switch {
	case err == nil:
	case errors.Is(err, view.ErrWrite):
		b.Logger.Warn("write response failed",
			zap.String("uri", r.RequestURI),
			zap.Error(err))
	default:
		b.Logger.Error("render failed",
			zap.String("template", page.Template),
			zap.String("uri", r.RequestURI),
			zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// apiFailure logs err and sets the banner shown to the user.
func (b base) apiFailure(page *view.Page, msg string, err error) {
	b.Logger.Warn(msg, zap.Error(err))
	page.Error = msg + ": " + err.Error()
}

// PageHandler serves the static pages.
type PageHandler struct {
	base
}

// NewPageHandler constructs a PageHandler.
func NewPageHandler(v *view.Renderer, logger *zap.Logger) *PageHandler {
	return &PageHandler{base{View: v, Logger: logger}}
}

// Show renders the route template as is.
func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request, page *view.Page) {
	h.render(w, r, http.StatusOK, page)
}

func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func confirmed(r *http.Request) bool {
	return r.PostFormValue("confirm") == "yes"
}

func formBool(r *http.Request, key string) bool {
	v := r.PostFormValue(key)
	return v == "on" || v == "true"
}

// formCoords parses an optional latitude/longitude pair. Both empty means
// no position; a single coordinate is rejected.
func formCoords(r *http.Request, latKey, lngKey string) (lat, lng *float64, err error) {
	if lat, err = formFloat(r, latKey); err != nil {
		return nil, nil, fmt.Errorf("invalid latitude %q", r.PostFormValue(latKey))
	}
	if lng, err = formFloat(r, lngKey); err != nil {
		return nil, nil, fmt.Errorf("invalid longitude %q", r.PostFormValue(lngKey))
	}
	if (lat == nil) != (lng == nil) {
		return nil, nil, errors.New("latitude and longitude must be given together")
	}
	return lat, lng, nil
}

// formFloat parses an optional decimal field; empty means unset.
func formFloat(r *http.Request, key string) (*float64, error) {
	v := strings.TrimSpace(r.PostFormValue(key))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
