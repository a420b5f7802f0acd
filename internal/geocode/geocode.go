// Package geocode translates between free-text addresses and coordinates
// using the Google Geocoding web service.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/paulmach/orb"
)

// Status values reported by the geocoding service. StatusOK is the only
// status under which results can be trusted.
const (
	StatusOK          = "OK"
	StatusZeroResults = "ZERO_RESULTS"
)

// Result is one candidate location.
type Result struct {
	// FormattedAddress is the human-readable address of the candidate.
	FormattedAddress string
	// Location is the candidate position (orb order: longitude, latitude).
	Location orb.Point
}

// Response is the answer to one geocoding request.
type Response struct {
	Status       string
	ErrorMessage string
	Results      []Result
}

// OK reports whether the service answered StatusOK with at least one result.
func (r *Response) OK() bool {
	return r != nil && r.Status == StatusOK && len(r.Results) > 0
}

// First returns the first candidate. Only meaningful when OK is true.
func (r *Response) First() Result {
	return r.Results[0]
}

// Geocoder calls the geocoding endpoint. It keeps no state between calls.
type Geocoder struct {
	client   *http.Client
	endpoint string
	key      string
}

// New returns a Geocoder for endpoint. key may be empty.
func New(client *http.Client, endpoint, key string) *Geocoder {
	return &Geocoder{client: client, endpoint: endpoint, key: key}
}

// GeocodeAddress forward-geocodes a free-text address into candidate locations.
func (g *Geocoder) GeocodeAddress(ctx context.Context, address string) (*Response, error) {
	return g.lookup(ctx, url.Values{"address": {address}})
}

// GeocodeLatLng reverse-geocodes a position into candidate addresses.
func (g *Geocoder) GeocodeLatLng(ctx context.Context, lat, lng float64) (*Response, error) {
	latlng := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
	return g.lookup(ctx, url.Values{"latlng": {latlng}})
}

type wireResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *Geocoder) lookup(ctx context.Context, query url.Values) (*Response, error) {
	if g.key != "" {
		query.Set("key", g.key)
	}
	target := g.endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocode server error: %d %s", resp.StatusCode, string(data))
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("invalid geocode response: %w", err)
	}

	out := &Response{Status: wire.Status, ErrorMessage: wire.ErrorMessage}
	for _, r := range wire.Results {
		out.Results = append(out.Results, Result{
			FormattedAddress: r.FormattedAddress,
			Location:         orb.Point{r.Geometry.Location.Lng, r.Geometry.Location.Lat},
		})
	}
	return out, nil
}
