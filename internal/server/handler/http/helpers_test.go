package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/atinyakov/phototrack-admin/internal/apitest"
	"github.com/atinyakov/phototrack-admin/internal/client/api"
	"github.com/atinyakov/phototrack-admin/internal/geocode"
	"github.com/atinyakov/phototrack-admin/internal/service"
	"github.com/atinyakov/phototrack-admin/internal/view"
)

const testAPIPath = "http://api.test/phototrackserver"

// fakeGeocoder implements Geocoder for testing.
type fakeGeocoder struct {
	AddressFunc func(ctx context.Context, address string) (*geocode.Response, error)
	LatLngFunc  func(ctx context.Context, lat, lng float64) (*geocode.Response, error)
}

func (f *fakeGeocoder) GeocodeAddress(ctx context.Context, address string) (*geocode.Response, error) {
	return f.AddressFunc(ctx, address)
}

func (f *fakeGeocoder) GeocodeLatLng(ctx context.Context, lat, lng float64) (*geocode.Response, error) {
	return f.LatLngFunc(ctx, lat, lng)
}

type testEnv struct {
	api      *apitest.Server
	geocoder *fakeGeocoder
	photos   *PhotoHandler
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	srv := apitest.NewServer(t)
	client := api.New(srv.Client(), srv.URL)

	renderer, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	logger := zap.NewNop()

	users := service.NewUserService(client.Users)
	sites := service.NewSiteService(client.Sites)
	photos := service.NewPhotoService(client.Photos, client.SitePhotos)

	env := &testEnv{api: srv, geocoder: &fakeGeocoder{}}
	h := Handlers{
		Pages:  NewPageHandler(renderer, logger),
		Users:  NewUserHandler(users, renderer, logger),
		Sites:  NewSiteHandler(sites, env.geocoder, renderer, logger),
		Photos: NewPhotoHandler(photos, sites, 0, renderer, logger),
	}
	env.photos = h.Photos
	env.router = NewRouter(Routes(h), view.Layout{APIPath: testAPIPath}, logger)
	return env
}

func (e *testEnv) get(t *testing.T, target string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec, rec.Body.String()
}

func (e *testEnv) post(t *testing.T, target string, form url.Values) (*httptest.ResponseRecorder, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec, rec.Body.String()
}

func (e *testEnv) send(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Result().Body)
	return rec, string(body)
}
