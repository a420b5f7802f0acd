package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{
  "status": "OK",
  "results": [
    {"formatted_address": "1 Infinite Loop, Cupertino, CA 95014, USA",
     "geometry": {"location": {"lat": 37.3318, "lng": -122.0312}}},
    {"formatted_address": "Infinite Loop, Cupertino",
     "geometry": {"location": {"lat": 37.33, "lng": -122.03}}}
  ]
}`

func newGeocoder(t *testing.T, key string, handler http.HandlerFunc) (*Geocoder, *[]url.Values) {
	t.Helper()
	var queries []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.Client(), srv.URL+"/maps/api/geocode/json", key), &queries
}

func TestGeocodeAddress_OK(t *testing.T) {
	g, queries := newGeocoder(t, "k3y", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	})

	resp, err := g.GeocodeAddress(context.Background(), "1 Infinite Loop")
	require.NoError(t, err)
	require.True(t, resp.OK())
	require.Len(t, resp.Results, 2)

	first := resp.First()
	assert.Equal(t, "1 Infinite Loop, Cupertino, CA 95014, USA", first.FormattedAddress)
	assert.Equal(t, orb.Point{-122.0312, 37.3318}, first.Location)
	assert.Equal(t, 37.3318, first.Location.Lat())
	assert.Equal(t, -122.0312, first.Location.Lon())

	require.Len(t, *queries, 1)
	assert.Equal(t, "1 Infinite Loop", (*queries)[0].Get("address"))
	assert.Equal(t, "k3y", (*queries)[0].Get("key"))
}

func TestGeocodeLatLng_OK(t *testing.T) {
	g, queries := newGeocoder(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	})

	resp, err := g.GeocodeLatLng(context.Background(), 37.3318, -122.0312)
	require.NoError(t, err)
	assert.True(t, resp.OK())

	q := (*queries)[0]
	assert.Equal(t, "37.3318,-122.0312", q.Get("latlng"))
	assert.False(t, q.Has("key"))
}

func TestGeocode_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero results", body: `{"status":"ZERO_RESULTS","results":[]}`},
		{name: "denied", body: `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid.","results":[]}`},
		{name: "ok without results", body: `{"status":"OK","results":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newGeocoder(t, "", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			resp, err := g.GeocodeAddress(context.Background(), "nowhere")
			require.NoError(t, err)
			assert.False(t, resp.OK())
		})
	}
}

func TestGeocode_ErrorMessage(t *testing.T) {
	g, _ := newGeocoder(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OVER_QUERY_LIMIT","error_message":"slow down"}`))
	})
	resp, err := g.GeocodeAddress(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "OVER_QUERY_LIMIT", resp.Status)
	assert.Equal(t, "slow down", resp.ErrorMessage)
}

func TestGeocode_HTTPError(t *testing.T) {
	g, _ := newGeocoder(t, "", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	resp, err := g.GeocodeAddress(context.Background(), "x")
	assert.Nil(t, resp)
	assert.ErrorContains(t, err, "geocode server error: 500")
}

func TestGeocode_InvalidJSON(t *testing.T) {
	g, _ := newGeocoder(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	})
	_, err := g.GeocodeLatLng(context.Background(), 1, 2)
	assert.ErrorContains(t, err, "invalid geocode response")
}

func TestResponse_OKNil(t *testing.T) {
	var resp *Response
	assert.False(t, resp.OK())
}
