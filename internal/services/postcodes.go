package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"roehampton-community-directory/internal/models"
)

// defaultPostcodesAPIURL is the postcodes.io base URL, overridable via
// POSTCODES_API_URL
const defaultPostcodesAPIURL = "https://api.postcodes.io"

// PostcodeClient resolves UK postcodes to coordinates via the geocoding
// collaborator
type PostcodeClient struct {
	httpClient *http.Client
	baseURL    string
}

// postcodeLookupResponse mirrors the postcodes.io lookup payload
type postcodeLookupResponse struct {
	Status int `json:"status"`
	Result struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"result"`
}

// NewPostcodeClient creates a postcode client configured from the environment
func NewPostcodeClient() *PostcodeClient {
	baseURL := os.Getenv("POSTCODES_API_URL")
	if baseURL == "" {
		baseURL = defaultPostcodesAPIURL
	}
	return NewPostcodeClientWithURL(baseURL)
}

// NewPostcodeClientWithURL creates a postcode client for a specific base URL
func NewPostcodeClientWithURL(baseURL string) *PostcodeClient {
	return &PostcodeClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Lookup resolves a postcode to a coordinate. The postcode is uppercased and
// validated against the UK pattern before any network call. A nil coordinate
// with a nil error means the postcode is not resolvable (invalid format or
// not found); a non-nil error covers transport failures. Callers treat both
// the same way: fall back to the device-reported location.
func (p *PostcodeClient) Lookup(ctx context.Context, postcode string) (*models.Coordinate, error) {
	normalized := models.NormalizePostcode(postcode)
	if !models.ValidPostcode(normalized) {
		return nil, nil
	}

	lookupURL := fmt.Sprintf("%s/postcodes/%s", p.baseURL, url.PathEscape(normalized))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("postcode lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("postcode lookup returned status %d", resp.StatusCode)
	}

	var payload postcodeLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode postcode response: %w", err)
	}

	return &models.Coordinate{
		Lat:  payload.Result.Latitude,
		Long: payload.Result.Longitude,
	}, nil
}

// LocationProvider abstracts the device geolocation collaborator. A nil
// coordinate means permission was denied or no location is available; it is
// never an error condition.
type LocationProvider interface {
	CurrentLocation(ctx context.Context) *models.Coordinate
}

// StaticLocationProvider serves a fixed device-reported coordinate, as
// relayed by the view layer with each request
type StaticLocationProvider struct {
	Coordinate *models.Coordinate
}

// CurrentLocation returns the relayed coordinate, or nil when none was sent
func (s StaticLocationProvider) CurrentLocation(ctx context.Context) *models.Coordinate {
	return s.Coordinate
}

// LocationResolver turns postcode edits into a current user location. Each
// resolution is stamped with a monotonic generation at issue time and only
// lands if no newer request has been issued since, so a slow postcode lookup
// can never clobber the result of a later one (last-issued-wins). Lookup
// failures fall back to the device-reported location.
type LocationResolver struct {
	postcodes *PostcodeClient
	device    LocationProvider

	mu       sync.Mutex
	issued   uint64
	applied  uint64
	location *models.Coordinate
}

// NewLocationResolver creates a resolver over the two location collaborators.
// Either collaborator may be nil; a nil collaborator simply never produces a
// coordinate.
func NewLocationResolver(postcodes *PostcodeClient, device LocationProvider) *LocationResolver {
	return &LocationResolver{
		postcodes: postcodes,
		device:    device,
	}
}

// Resolve issues a location resolution for the given postcode. An empty
// postcode skips the lookup and goes straight to the device location. The
// returned coordinate is the resolver's current location after this request
// settles, which may belong to a newer concurrent request.
func (r *LocationResolver) Resolve(ctx context.Context, postcode string) *models.Coordinate {
	generation := r.begin()

	coord := r.lookup(ctx, postcode)
	if coord == nil && r.device != nil {
		coord = r.device.CurrentLocation(ctx)
	}

	r.commit(generation, coord)
	return r.Location()
}

// Location returns the most recently resolved user location, nil when unknown
func (r *LocationResolver) Location() *models.Coordinate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

func (r *LocationResolver) lookup(ctx context.Context, postcode string) *models.Coordinate {
	if postcode == "" || r.postcodes == nil {
		return nil
	}
	coord, err := r.postcodes.Lookup(ctx, postcode)
	if err != nil {
		log.Printf("[LOCATION] postcode lookup failed for %q: %v", postcode, err)
		return nil
	}
	return coord
}

// begin stamps a new resolution request
func (r *LocationResolver) begin() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued++
	return r.issued
}

// commit lands a resolution result unless a newer request already landed.
// Reports whether the result was applied.
func (r *LocationResolver) commit(generation uint64, coord *models.Coordinate) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if generation <= r.applied {
		return false
	}
	r.applied = generation
	r.location = coord
	return true
}
