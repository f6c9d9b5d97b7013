package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim is the free OpenStreetMap provider. It requires a descriptive
// User-Agent and allows roughly one request per second.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim returns a Nominatim provider with the given User-Agent.
func NewNominatim(userAgent string) *Nominatim {
	return &Nominatim{
		baseURL:   nominatimBaseURL,
		userAgent: userAgent,
		client:    &http.Client{},
	}
}

// NewNominatimWithBaseURL is used by tests to point at a stub server.
func NewNominatimWithBaseURL(baseURL, userAgent string) *Nominatim {
	n := NewNominatim(userAgent)
	n.baseURL = baseURL
	return n
}

func (n *Nominatim) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves an address via the /search endpoint.
func (n *Nominatim) Geocode(ctx context.Context, address string) Result {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := n.do(ctx, "/search", q, &places); err != nil {
		return providerFailure(err)
	}
	if len(places) == 0 {
		return failure("Address not found")
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		return failure("Geocoding service error: malformed coordinates in response")
	}

	return Result{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: places[0].DisplayName,
		Success:          true,
	}
}

// Reverse resolves coordinates via the /reverse endpoint.
func (n *Nominatim) Reverse(ctx context.Context, lat, lng float64) Result {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "json")

	var place struct {
		DisplayName string `json:"display_name"`
		Error       string `json:"error"`
	}
	if err := n.do(ctx, "/reverse", q, &place); err != nil {
		return providerFailure(err)
	}
	if place.Error != "" || place.DisplayName == "" {
		return failure("Coordinates not found")
	}

	return Result{
		Latitude:         lat,
		Longitude:        lng,
		FormattedAddress: place.DisplayName,
		Success:          true,
	}
}

func (n *Nominatim) do(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// providerFailure translates a transport-level error into the caller-facing
// Result, distinguishing timeouts from other provider errors.
func providerFailure(err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure("Geocoding service timed out")
	}
	return failure("Geocoding service error: %v", err)
}
