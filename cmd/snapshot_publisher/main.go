package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"roehampton-community-directory/internal/services"
)

// PublishEvent represents the EventBridge trigger event
type PublishEvent struct {
	Source      string `json:"source"`
	DetailType  string `json:"detail-type"`
	TriggerType string `json:"trigger-type,omitempty"` // manual or scheduled
}

// PublishResponse represents the function response
type PublishResponse struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	TotalActivities int      `json:"total_activities"`
	WithCoordinates int      `json:"with_coordinates"`
	ProcessingTime  int64    `json:"processing_time_ms"`
	UploadedKeys    []string `json:"uploaded_keys,omitempty"`
	Errors          []string `json:"errors,omitempty"`
}

// HandlePublish fetches the activities sheet, normalizes it, and publishes
// timestamped and latest snapshots for the frontend and the directory API
func HandlePublish(ctx context.Context, event PublishEvent) (PublishResponse, error) {
	start := time.Now()
	log.Printf("[PUBLISH] starting snapshot publish (trigger: %s)", event.TriggerType)

	sheets := services.NewSheetsClient()
	normalizer := services.NewNormalizer(services.NewPostcodeClient())

	rows, err := sheets.FetchRows(ctx)
	if err != nil {
		// non-fatal for the pipeline: report and let the next run retry
		log.Printf("[PUBLISH] sheet fetch failed: %v", err)
		return PublishResponse{
			Success:        false,
			Message:        "sheet fetch failed",
			ProcessingTime: time.Since(start).Milliseconds(),
			Errors:         []string{err.Error()},
		}, nil
	}

	activities := normalizer.Normalize(ctx, rows)

	withCoords := 0
	for _, a := range activities {
		if a.HasCoordinate() {
			withCoords++
		}
	}
	log.Printf("[PUBLISH] normalized %d activities, %d with coordinates", len(activities), withCoords)

	store, err := services.NewSnapshotStore(ctx)
	if err != nil {
		return PublishResponse{
			Success:         false,
			Message:         "snapshot store unavailable",
			TotalActivities: len(activities),
			WithCoordinates: withCoords,
			ProcessingTime:  time.Since(start).Milliseconds(),
			Errors:          []string{err.Error()},
		}, nil
	}

	var uploaded []string
	var uploadErrors []string

	if result, err := store.UploadSnapshotWithTimestamp(ctx, activities); err != nil {
		uploadErrors = append(uploadErrors, fmt.Sprintf("timestamped upload: %v", err))
	} else {
		uploaded = append(uploaded, result.Key)
	}

	if result, err := store.UploadLatestSnapshot(ctx, activities); err != nil {
		uploadErrors = append(uploadErrors, fmt.Sprintf("latest upload: %v", err))
	} else {
		uploaded = append(uploaded, result.Key)
	}

	success := len(uploadErrors) == 0
	message := fmt.Sprintf("published %d activities", len(activities))
	if !success {
		message = "publish completed with errors"
	}

	log.Printf("[PUBLISH] done in %v: %s", time.Since(start), message)

	return PublishResponse{
		Success:         success,
		Message:         message,
		TotalActivities: len(activities),
		WithCoordinates: withCoords,
		ProcessingTime:  time.Since(start).Milliseconds(),
		UploadedKeys:    uploaded,
		Errors:          uploadErrors,
	}, nil
}

func main() {
	lambda.Start(HandlePublish)
}
