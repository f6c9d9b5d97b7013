package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const googleBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google is the paid Google Maps Geocoding provider; it requires an API key.
type Google struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewGoogle returns a Google provider using the given API key.
func NewGoogle(apiKey string) *Google {
	return &Google{
		baseURL: googleBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// NewGoogleWithBaseURL is used by tests to point at a stub server.
func NewGoogleWithBaseURL(baseURL, apiKey string) *Google {
	g := NewGoogle(apiKey)
	g.baseURL = baseURL
	return g
}

func (g *Google) Name() string { return "google" }

type googleResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	ErrorMessage string `json:"error_message"`
}

// Geocode resolves an address through the geocoding API.
func (g *Google) Geocode(ctx context.Context, address string) Result {
	q := url.Values{}
	q.Set("address", address)

	resp, err := g.do(ctx, q)
	if err != nil {
		return providerFailure(err)
	}
	if r, ok := g.checkStatus(resp, "Address not found"); !ok {
		return r
	}

	loc := resp.Results[0].Geometry.Location
	return Result{
		Latitude:         loc.Lat,
		Longitude:        loc.Lng,
		FormattedAddress: resp.Results[0].FormattedAddress,
		Success:          true,
	}
}

// Reverse resolves coordinates through the geocoding API.
func (g *Google) Reverse(ctx context.Context, lat, lng float64) Result {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))

	resp, err := g.do(ctx, q)
	if err != nil {
		return providerFailure(err)
	}
	if r, ok := g.checkStatus(resp, "Coordinates not found"); !ok {
		return r
	}

	return Result{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: resp.Results[0].FormattedAddress,
		Success:          true,
	}
}

func (g *Google) do(ctx context.Context, query url.Values) (*googleResponse, error) {
	query.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

// checkStatus maps the API status field to a Result; ok is true when results
// are usable.
func (g *Google) checkStatus(resp *googleResponse, notFoundMsg string) (Result, bool) {
	switch {
	case resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0 && resp.Status == "OK":
		return failure("%s", notFoundMsg), false
	case resp.Status != "OK":
		if resp.ErrorMessage != "" {
			return failure("Geocoding service error: %s", resp.ErrorMessage), false
		}
		return failure("Geocoding service error: %s", resp.Status), false
	}
	return Result{}, true
}
