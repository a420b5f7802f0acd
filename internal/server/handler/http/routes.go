// Package http serves the PhotoTrack admin pages. A static route table maps
// each path to a page template, a navigation menu and its controllers.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/phototrack-admin/internal/middleware"
	"github.com/atinyakov/phototrack-admin/internal/view"
)

// Controller handles one request for a route. page is prefilled with the
// route's template, title and navigation context.
type Controller func(w http.ResponseWriter, r *http.Request, page *view.Page)

// Route binds a path pattern to its page and controllers. A nil controller
// leaves the method unmatched.
type Route struct {
	Pattern  string
	Template string
	Menu     string
	Title    string
	Get      Controller
	Post     Controller
}

// Handlers groups the controllers of every area.
type Handlers struct {
	Pages  *PageHandler
	Users  *UserHandler
	Sites  *SiteHandler
	Photos *PhotoHandler
}

// Routes returns the route table of the admin front-end.
func Routes(h Handlers) []Route {
	return []Route{
		{Pattern: "/", Template: "main.html", Menu: view.MenuHome, Get: h.Pages.Show},
		{Pattern: "/about", Template: "about.html", Menu: view.MenuAbout, Title: "About", Get: h.Pages.Show},

		{Pattern: "/users", Template: "users/list.html", Menu: view.MenuUsers, Title: "Users", Get: h.Users.List},
		{Pattern: "/user/add", Template: "users/edit.html", Menu: view.MenuUsers, Title: "Add user", Get: h.Users.New, Post: h.Users.Create},
		{Pattern: "/user/{Uuid}", Template: "users/edit.html", Menu: view.MenuUsers, Title: "Edit user", Get: h.Users.Edit, Post: h.Users.Save},
		{Pattern: "/user/{Uuid}/delete", Template: "users/edit.html", Menu: view.MenuUsers, Title: "Edit user", Post: h.Users.Destroy},

		{Pattern: "/sites", Template: "sites/list.html", Menu: view.MenuSites, Title: "Sites", Get: h.Sites.List},
		{Pattern: "/site/add", Template: "sites/edit.html", Menu: view.MenuSites, Title: "Add site", Get: h.Sites.New, Post: h.Sites.Create},
		{Pattern: "/site/{Uuid}", Template: "sites/edit.html", Menu: view.MenuSites, Title: "Edit site", Get: h.Sites.Edit, Post: h.Sites.Save},
		{Pattern: "/site/{Uuid}/delete", Template: "sites/edit.html", Menu: view.MenuSites, Title: "Edit site", Post: h.Sites.Destroy},

		{Pattern: "/site/{Uuid}/photos", Template: "photos/list.html", Menu: view.MenuSites, Title: "Photos", Get: h.Photos.List},
		{Pattern: "/site/{Uuid}/photos/add", Template: "photos/edit.html", Menu: view.MenuSites, Title: "Add photo", Get: h.Photos.New, Post: h.Photos.Create},
		{Pattern: "/site/{Uuid}/photos/{PhotoUuid}/delete", Template: "photos/list.html", Menu: view.MenuSites, Title: "Photos", Post: h.Photos.Destroy},
	}
}

// NewRouter mounts routes on a chi router.
//
// Middleware chain (applied in order):
//  1. Recoverer: turns handler panics into 500 answers
//  2. RequestID: tags the request, propagated to API calls
//  3. WithRequestLogging(logger): logs each request
//
// Unknown paths and unmatched methods redirect to the home page.
func NewRouter(routes []Route, layout view.Layout, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))

	for _, rt := range routes {
		if rt.Get != nil {
			r.Get(rt.Pattern, bind(rt, rt.Get, layout))
		}
		if rt.Post != nil {
			r.Post(rt.Pattern, bind(rt, rt.Post, layout))
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.NotFound(redirectHome)
	r.MethodNotAllowed(redirectHome)

	return r
}

func bind(rt Route, c Controller, layout view.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		layout := layout
		layout.Menu = rt.Menu
		c(w, r, &view.Page{Layout: layout, Template: rt.Template, Title: rt.Title})
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}
