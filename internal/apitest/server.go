// Package apitest provides an in-memory PhotoTrack API for tests. It answers
// the way the real API does: POST returns {"<Kind>Id": ...}, PUT and DELETE
// return {}, and unknown identifiers on GET answer 400.
package apitest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Call is one request received by the Server.
type Call struct {
	Method    string
	Path      string
	Query     string
	Body      map[string]any
	RequestID string
}

type record = map[string]any

type image struct {
	mime string
	data []byte
}

// Server is a fake PhotoTrack API. Safe for concurrent use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]record
	sites    map[string]record
	photos   map[string]record
	images   map[string]image
	calls    []Call
	failures map[string]int
}

// NewServer starts a Server that is closed when the test completes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		users:    map[string]record{},
		sites:    map[string]record{},
		photos:   map[string]record{},
		images:   map[string]image{},
		failures: map[string]int{},
	}

	r := chi.NewRouter()
	r.Use(s.record)

	s.mount(r, "/users", s.users, "UserId")
	s.mount(r, "/sites", s.sites, "SiteId")
	s.mount(r, "/photos", s.photos, "PhotoId")
	r.Get("/sites/{uuid}/photos", s.listPhotosOfSite)
	r.Get("/photos/{uuid}/image", s.getImage)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Fail makes every later request matching method and path answer status.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Calls returns the requests received so far, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the received requests matching method and path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// AddUser stores a user and returns its identifier.
func (s *Server) AddUser(v any) string { return s.add(s.users, v) }

// AddSite stores a site and returns its identifier.
func (s *Server) AddSite(v any) string { return s.add(s.sites, v) }

// AddPhoto stores a photo and returns its identifier.
func (s *Server) AddPhoto(v any) string { return s.add(s.photos, v) }

// User returns the stored user with the given identifier, or nil.
func (s *Server) User(id string) map[string]any { return s.get(s.users, id) }

// Site returns the stored site with the given identifier, or nil.
func (s *Server) Site(id string) map[string]any { return s.get(s.sites, id) }

// Photo returns the stored photo with the given identifier, or nil.
func (s *Server) Photo(id string) map[string]any { return s.get(s.photos, id) }

// Image returns the stored image of a photo.
func (s *Server) Image(id string) (mime string, data []byte, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[id]
	return img.mime, img.data, ok
}

func (s *Server) add(store map[string]record, v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var m record
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	id := uuid.NewString()
	delete(m, "Uuid")

	s.mu.Lock()
	defer s.mu.Unlock()
	store[id] = m
	return id
}

func (s *Server) get(store map[string]record, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := store[id]
	if !ok {
		return nil
	}
	return withUUID(m, id)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := Call{
			Method:    r.Method,
			Path:      r.URL.Path,
			Query:     r.URL.RawQuery,
			RequestID: r.Header.Get("X-Request-Id"),
		}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(data))
			_ = json.Unmarshal(data, &call.Body)
		}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		status, fail := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if fail {
			http.Error(w, "injected failure", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) mount(r chi.Router, prefix string, store map[string]record, idKey string) {
	r.Get(prefix, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		list := make([]record, 0, len(store))
		for id, m := range store {
			list = append(list, withUUID(m, id))
		}
		s.mu.Unlock()
		sortByUUID(list)
		writeJSON(w, list)
	})

	r.Post(prefix, func(w http.ResponseWriter, r *http.Request) {
		var m record
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil || m == nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		delete(m, "Uuid")
		id := uuid.NewString()

		s.mu.Lock()
		if data, ok := m["ImageData"].(string); ok {
			decoded, err := base64.StdEncoding.DecodeString(data)
			if err == nil {
				mime, _ := m["ImageMime"].(string)
				s.images[id] = image{mime: mime, data: decoded}
			}
			delete(m, "ImageData")
		}
		store[id] = m
		s.mu.Unlock()

		writeJSON(w, map[string]string{idKey: id})
	})

	r.Get(prefix+"/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "uuid")
		m := s.get(store, id)
		if m == nil {
			http.Error(w, "unknown identifier", http.StatusBadRequest)
			return
		}
		writeJSON(w, m)
	})

	r.Put(prefix+"/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "uuid")
		var m record
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil || m == nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		current, ok := store[id]
		if !ok {
			http.Error(w, "unknown identifier", http.StatusBadRequest)
			return
		}
		for k, v := range m {
			if k != "Uuid" {
				current[k] = v
			}
		}
		writeJSON(w, map[string]string{})
	})

	r.Delete(prefix+"/{uuid}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "uuid")

		s.mu.Lock()
		delete(store, id)
		delete(s.images, id)
		if prefix == "/sites" {
			for pid, p := range s.photos {
				if p["SiteUuid"] == id {
					delete(s.photos, pid)
					delete(s.images, pid)
				}
			}
		}
		s.mu.Unlock()

		writeJSON(w, map[string]string{})
	})
}

func (s *Server) listPhotosOfSite(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "uuid")

	s.mu.Lock()
	list := []record{}
	for id, m := range s.photos {
		if m["SiteUuid"] == siteID {
			list = append(list, withUUID(m, id))
		}
	}
	s.mu.Unlock()

	sortByUUID(list)
	writeJSON(w, list)
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	mime, data, ok := s.Image(chi.URLParam(r, "uuid"))
	if !ok {
		http.Error(w, "no image", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", mime)
	_, _ = w.Write(data)
}

func withUUID(m record, id string) record {
	out := make(record, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out["Uuid"] = id
	return out
}

func sortByUUID(list []record) {
	sort.Slice(list, func(i, j int) bool {
		return strings.Compare(list[i]["Uuid"].(string), list[j]["Uuid"].(string)) < 0
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
