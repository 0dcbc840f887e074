package cafe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

const httpTimeout = 10 * time.Second

// newHTTPClient returns an http.Client with a 10-second timeout.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// endpoint strips the query so API keys stay out of errors and logs.
func endpoint(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

// statusError is a non-200 reply from a provider.
type statusError struct {
	method   string
	endpoint string
	code     int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d", e.method, e.endpoint, e.code)
}

// doJSON sends req and decodes a 200 JSON response into dst.
func doJSON(client *http.Client, req *http.Request, dst any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, endpoint(req.URL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{method: req.Method, endpoint: endpoint(req.URL), code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding response from %s: %w", endpoint(req.URL), err)
	}

	return nil
}

// ---- Places API (New) ----

const (
	placesDefaultURL = "https://places.googleapis.com/v1/places:searchNearby"
	placesFieldMask  = "places.displayName,places.id,places.rating,places.photos,places.location,places.userRatingCount"
	placesType       = "cafe"
)

// PlacesClient searches for cafes around a point with the Places Nearby Search API.
type PlacesClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[[]Place]
}

// NewPlacesClient constructs a PlacesClient with the given API key.
func NewPlacesClient(apiKey string, log *slog.Logger) *PlacesClient {
	return NewPlacesClientWithURL(placesDefaultURL, apiKey, log)
}

// NewPlacesClientWithURL constructs a PlacesClient pointing at a custom URL (for tests).
func NewPlacesClientWithURL(baseURL, apiKey string, log *slog.Logger) *PlacesClient {
	return &PlacesClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		cb:      newBreaker[[]Place]("places-api", log),
	}
}

type nearbyRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction struct {
		Circle struct {
			Center LatLng  `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type nearbyResponse struct {
	Places []Place   `json:"places"`
	Error  *apiError `json:"error"`
}

// SearchNearby returns up to maxResults cafes within radius meters of center.
// Records without an id are dropped; out-of-range ratings and counts are cleared.
func (c *PlacesClient) SearchNearby(ctx context.Context, center LatLng, radius, maxResults int) ([]Place, error) {
	places, err := c.cb.Execute(func() ([]Place, error) {
		places, err := c.searchNearby(ctx, center, radius, maxResults)
		return places, classify(ctx, err)
	})
	if err != nil {
		return nil, fmt.Errorf("places nearby search (radius %dm): %w", radius, err)
	}
	return places, nil
}

func (c *PlacesClient) searchNearby(ctx context.Context, center LatLng, radius, maxResults int) ([]Place, error) {
	var body nearbyRequest
	body.IncludedTypes = []string{placesType}
	body.MaxResultCount = maxResults
	body.LocationRestriction.Circle.Center = center
	body.LocationRestriction.Circle.Radius = float64(radius)

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling nearby request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", c.baseURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", placesFieldMask)

	var raw nearbyResponse
	if err := doJSON(c.client, req, &raw); err != nil {
		return nil, err
	}
	if raw.Error != nil {
		err := fmt.Errorf("places api error %d %s: %s", raw.Error.Code, raw.Error.Status, raw.Error.Message)
		if isClientRejection(raw.Error.Code) {
			return nil, neutral(err)
		}
		return nil, err
	}

	places := make([]Place, 0, len(raw.Places))
	for _, p := range raw.Places {
		if clean, ok := sanitize(p); ok {
			places = append(places, clean)
		}
	}

	return places, nil
}

// ---- Geocoding API ----

const geocodeDefaultURL = "https://maps.googleapis.com/maps/api/geocode/json"

var (
	errNoLocality = errors.New("no locality in geocoding response")
	errNoResults  = errors.New("geocoding returned no results")
)

// GeocodeClient resolves coordinates to a city name with the Geocoding API.
type GeocodeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[string]
}

// NewGeocodeClient constructs a GeocodeClient with the given API key.
func NewGeocodeClient(apiKey string, log *slog.Logger) *GeocodeClient {
	return NewGeocodeClientWithURL(geocodeDefaultURL, apiKey, log)
}

// NewGeocodeClientWithURL constructs a GeocodeClient pointing at a custom URL (for tests).
func NewGeocodeClientWithURL(baseURL, apiKey string, log *slog.Logger) *GeocodeClient {
	return &GeocodeClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		cb:      newBreaker[string]("geocoding-api", log),
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// ReverseGeocode returns the locality name for the given coordinates.
func (c *GeocodeClient) ReverseGeocode(ctx context.Context, at LatLng) (string, error) {
	city, err := c.cb.Execute(func() (string, error) {
		city, err := c.reverseGeocode(ctx, at)
		return city, classify(ctx, err)
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode %f,%f: %w", at.Latitude, at.Longitude, err)
	}
	return city, nil
}

func (c *GeocodeClient) reverseGeocode(ctx context.Context, at LatLng) (string, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(at.Latitude, 'f', -1, 64)+","+strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating geocode request: %w", err)
	}

	var raw geocodeResponse
	if err := doJSON(c.client, req, &raw); err != nil {
		return "", err
	}
	if len(raw.Results) == 0 {
		err := fmt.Errorf("%w (status %q)", errNoResults, raw.Status)
		// ZERO_RESULTS is an answer; OVER_QUERY_LIMIT and friends are not.
		if raw.Status == "ZERO_RESULTS" {
			return "", neutral(err)
		}
		return "", err
	}

	for _, comp := range raw.Results[0].AddressComponents {
		if slices.Contains(comp.Types, "locality") && comp.LongName != "" {
			return comp.LongName, nil
		}
	}

	return "", neutral(errNoLocality)
}

// ---- Place photos ----

const photoDefaultBaseURL = "https://places.googleapis.com/v1"

var (
	// ErrInvalidPhotoName is returned for names that are not provider photo references.
	ErrInvalidPhotoName = errors.New("invalid photo name")
	// ErrPhotoNotFound is returned when the provider has no such photo.
	ErrPhotoNotFound = errors.New("photo not found")
)

// PhotoClient resolves photo references to short-lived image URIs with the
// Places photo media endpoint. The API key travels in a header and never
// appears in the returned URI.
type PhotoClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[string]
}

// NewPhotoClient constructs a PhotoClient with the given API key.
func NewPhotoClient(apiKey string, log *slog.Logger) *PhotoClient {
	return NewPhotoClientWithURL(photoDefaultBaseURL, apiKey, log)
}

// NewPhotoClientWithURL constructs a PhotoClient pointing at a custom URL (for tests).
func NewPhotoClientWithURL(baseURL, apiKey string, log *slog.Logger) *PhotoClient {
	return &PhotoClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  newHTTPClient(),
		cb:      newBreaker[string]("places-photos", log),
	}
}

type photoMediaResponse struct {
	Name     string `json:"name"`
	PhotoURI string `json:"photoUri"`
}

// ResolvePhoto returns a key-free image URI for the named photo.
func (c *PhotoClient) ResolvePhoto(ctx context.Context, name string) (string, error) {
	if !ValidPhotoName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhotoName, name)
	}

	uri, err := c.cb.Execute(func() (string, error) {
		uri, err := c.resolvePhoto(ctx, name)
		return uri, classify(ctx, err)
	})
	if err != nil {
		return "", fmt.Errorf("resolving photo %s: %w", name, err)
	}
	return uri, nil
}

func (c *PhotoClient) resolvePhoto(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("maxWidthPx", strconv.Itoa(photoMaxWidthPx))
	q.Set("skipHttpRedirect", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+name+"/media?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating photo request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)

	var raw photoMediaResponse
	if err := doJSON(c.client, req, &raw); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return "", fmt.Errorf("%w: %w", ErrPhotoNotFound, err)
		}
		return "", err
	}
	if raw.PhotoURI == "" {
		return "", neutral(fmt.Errorf("%w: empty photoUri", ErrPhotoNotFound))
	}

	return raw.PhotoURI, nil
}
