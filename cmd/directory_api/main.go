package main

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"roehampton-community-directory/internal/models"
	"roehampton-community-directory/internal/services"
)

// ResponseBody is the standard API response envelope
type ResponseBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ActivitiesData is the /activities response payload
type ActivitiesData struct {
	Total      int               `json:"total"`
	Activities []models.Activity `json:"activities"`
}

// PinsData is the pin-session response payload
type PinsData struct {
	Session string `json:"session"`
	Pins    []int  `json:"pins"`
}

// PinToggleRequest is the body of POST /pins/toggle
type PinToggleRequest struct {
	Session    string `json:"session"`
	ActivityID int    `json:"activityId"`
}

// activityCache holds the canonical activity list, refreshed from the latest
// S3 snapshot (falling back to a live sheet fetch) on an interval. A stale
// list is served over an empty one when a refresh fails.
type activityCache struct {
	mu         sync.Mutex
	activities []models.Activity
	loadedAt   time.Time
	refresh    time.Duration
}

var (
	sheetsClient   *services.SheetsClient
	postcodeClient *services.PostcodeClient
	normalizer     *services.Normalizer
	snapshotStore  *services.SnapshotStore
	pinStore       *services.PinSessionStore
	cache          *activityCache
)

func init() {
	sheetsClient = services.NewSheetsClient()
	postcodeClient = services.NewPostcodeClient()
	normalizer = services.NewNormalizer(postcodeClient)
	pinStore = services.NewPinSessionStore()
	cache = &activityCache{refresh: 15 * time.Minute}

	store, err := services.NewSnapshotStore(context.Background())
	if err != nil {
		log.Printf("[API] snapshot store unavailable, serving from live sheet only: %v", err)
	} else {
		snapshotStore = store
	}
}

// get returns the cached activity list, refreshing it when stale
func (c *activityCache) get(ctx context.Context) []models.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activities != nil && time.Since(c.loadedAt) < c.refresh {
		return c.activities
	}

	activities, ok := loadActivities(ctx)
	if !ok {
		// keep serving the previous load; an empty directory beats a crash
		return c.activities
	}

	c.activities = activities
	c.loadedAt = time.Now()
	return c.activities
}

// loadActivities tries the latest published snapshot first, then a live
// fetch-and-normalize of the sheet
func loadActivities(ctx context.Context) ([]models.Activity, bool) {
	if snapshotStore != nil {
		snapshot, err := snapshotStore.DownloadLatestSnapshot(ctx)
		if err == nil && len(snapshot.Activities) > 0 {
			log.Printf("[API] loaded %d activities from snapshot (published %s)",
				len(snapshot.Activities), snapshot.Metadata.LastUpdated.Format(time.RFC3339))
			return snapshot.Activities, true
		}
		if err != nil {
			log.Printf("[API] snapshot download failed, falling back to live fetch: %v", err)
		}
	}

	rows, err := sheetsClient.FetchRows(ctx)
	if err != nil {
		log.Printf("[API] sheet fetch failed: %v", err)
		return nil, false
	}
	return normalizer.Normalize(ctx, rows), true
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.TrimSuffix(request.Path, "/")
	method := request.HTTPMethod

	log.Printf("[API] %s %s", method, path)

	switch {
	case method == "GET" && path == "/activities":
		return handleGetActivities(ctx, request)
	case method == "GET" && path == "/pins":
		return handleGetPins(request)
	case method == "POST" && path == "/pins/toggle":
		return handleTogglePin(request)
	case method == "DELETE" && path == "/pins":
		return handleClearPins(request)
	case method == "OPTIONS":
		return jsonResponse(200, ResponseBody{Success: true, Message: "OK"})
	default:
		return jsonResponse(404, ResponseBody{
			Success: false,
			Message: "Not found",
			Error:   "unknown route: " + method + " " + path,
		})
	}
}

// handleGetActivities applies the filter criteria from the query string to
// the cached activity list
func handleGetActivities(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	activities := cache.get(ctx)

	criteria := parseCriteria(ctx, request)
	filtered := services.ApplyFilters(activities, criteria)

	return jsonResponse(200, ResponseBody{
		Success: true,
		Message: "Activities retrieved",
		Data: ActivitiesData{
			Total:      len(filtered),
			Activities: filtered,
		},
	})
}

// parseCriteria builds FilterCriteria from query parameters. The user
// location resolves postcode-first with the device-reported lat/long as
// fallback, per the location precedence policy.
func parseCriteria(ctx context.Context, request events.APIGatewayProxyRequest) models.FilterCriteria {
	params := request.QueryStringParameters
	multi := request.MultiValueQueryStringParameters

	criteria := models.FilterCriteria{
		SearchTerm: params["search"],
		Audience:   selectedValues(multi["audience"], params["audience"]),
		Cost:       selectedValues(multi["cost"], params["cost"]),
		Days:       selectedValues(multi["days"], params["days"]),
		IsOneOff:   params["oneOff"] == "true",
	}

	if raw := params["maxDistance"]; raw != "" {
		if meters, err := strconv.ParseFloat(raw, 64); err == nil && meters >= 0 {
			criteria.MaxDistance = &meters
		}
	}

	criteria.UserLocation = resolveUserLocation(ctx, params)
	return criteria
}

// resolveUserLocation resolves the caller's position: postcode lookup first,
// device-reported coordinates as fallback, nil when neither yields one
func resolveUserLocation(ctx context.Context, params map[string]string) *models.Coordinate {
	var device *models.Coordinate
	if latRaw, longRaw := params["lat"], params["long"]; latRaw != "" && longRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		long, errLong := strconv.ParseFloat(longRaw, 64)
		if errLat == nil && errLong == nil {
			device = &models.Coordinate{Lat: lat, Long: long}
		}
	}

	postcode := params["postcode"]
	if postcode == "" {
		return device
	}

	resolver := services.NewLocationResolver(postcodeClient, services.StaticLocationProvider{Coordinate: device})
	return resolver.Resolve(ctx, postcode)
}

// selectedValues merges repeatable and comma-separated forms of a multi-value
// query parameter
func selectedValues(repeated []string, single string) []string {
	var values []string
	for _, raw := range repeated {
		for _, part := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	if len(values) == 0 && single != "" {
		for _, part := range strings.Split(single, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				values = append(values, trimmed)
			}
		}
	}
	return values
}

func handleGetPins(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	session := request.QueryStringParameters["session"]
	if session == "" {
		session = pinStore.NewSession()
	}
	return jsonResponse(200, ResponseBody{
		Success: true,
		Message: "Pins retrieved",
		Data:    PinsData{Session: session, Pins: pinStore.Pins(session).IDs()},
	})
}

func handleTogglePin(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req PinToggleRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return jsonResponse(400, ResponseBody{
			Success: false,
			Message: "Invalid request body",
			Error:   err.Error(),
		})
	}
	if req.Session == "" {
		req.Session = pinStore.NewSession()
	}
	pins := pinStore.Toggle(req.Session, req.ActivityID)
	return jsonResponse(200, ResponseBody{
		Success: true,
		Message: "Pin toggled",
		Data:    PinsData{Session: req.Session, Pins: pins.IDs()},
	})
}

func handleClearPins(request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	session := request.QueryStringParameters["session"]
	if session != "" {
		pinStore.Clear(session)
	}
	return jsonResponse(200, ResponseBody{
		Success: true,
		Message: "Pins cleared",
		Data:    PinsData{Session: session, Pins: []int{}},
	})
}

func jsonResponse(statusCode int, body ResponseBody) (events.APIGatewayProxyResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "GET,POST,DELETE,OPTIONS",
			"Access-Control-Allow-Headers": "Content-Type",
		},
		Body: string(payload),
	}, nil
}

func main() {
	lambda.Start(handleRequest)
}
