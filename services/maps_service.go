package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/MrCactuss/Ai-Powered-App-Project/models"
)

// Statuses the maps web services put in the "status" field.
const (
	MapsStatusOK          = "OK"
	MapsStatusZeroResults = "ZERO_RESULTS"
	MapsStatusNotFound    = "NOT_FOUND"
)

var placeDetailFields = []string{
	"name", "formatted_address", "international_phone_number",
	"website", "opening_hours", "rating", "user_ratings_total",
}

// MapsService talks to the Google Maps JSON web services.
type MapsService struct {
	client   *resty.Client
	apiKey   string
	language string
	limiter  *rate.Limiter
}

// NewMapsService builds a client for baseURL. requestsPerSecond <= 0 disables
// client-side throttling.
func NewMapsService(baseURL, apiKey, language string, requestsPerSecond float64) *MapsService {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}

	return &MapsService{
		client:   resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")),
		apiKey:   apiKey,
		language: language,
		limiter:  limiter,
	}
}

// Available reports whether the service has credentials to make calls.
func (m *MapsService) Available() bool {
	return m != nil && m.apiKey != ""
}

func (m *MapsService) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("maps rate limiter: %w", err)
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("language", m.language).
		SetQueryParam("key", m.apiKey).
		Get(path)
	if err != nil {
		return fmt.Errorf("maps request %s: %w", path, err)
	}

	if resp.IsError() {
		return fmt.Errorf("maps request %s failed, status: %d", path, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to parse maps response %s: %w", path, err)
	}
	return nil
}

// TextSearch runs a Places free-text search.
func (m *MapsService) TextSearch(ctx context.Context, query string) (*models.PlaceSearchResponse, error) {
	var result models.PlaceSearchResponse
	if err := m.get(ctx, "/place/textsearch/json", map[string]string{"query": query}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PlaceDetails fetches the expanded field set for one place id.
func (m *MapsService) PlaceDetails(ctx context.Context, placeID string) (*models.PlaceDetailsResponse, error) {
	var result models.PlaceDetailsResponse
	params := map[string]string{
		"place_id": placeID,
		"fields":   strings.Join(placeDetailFields, ","),
	}
	if err := m.get(ctx, "/place/details/json", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Directions asks for routes between two locations.
func (m *MapsService) Directions(ctx context.Context, origin, destination, mode string) (*models.DirectionsResponse, error) {
	var result models.DirectionsResponse
	params := map[string]string{
		"origin":      origin,
		"destination": destination,
		"mode":        mode,
	}
	if err := m.get(ctx, "/directions/json", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DistanceMatrix asks for a single origin/destination pair.
func (m *MapsService) DistanceMatrix(ctx context.Context, origin, destination, mode string) (*models.DistanceMatrixResponse, error) {
	var result models.DistanceMatrixResponse
	params := map[string]string{
		"origins":      origin,
		"destinations": destination,
		"mode":         mode,
	}
	if err := m.get(ctx, "/distancematrix/json", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
