package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"roehampton-community-directory/internal/models"
)

// Positional column layout of the published activities sheet. These indices
// exist only here; every other package works from models.RawActivityRow.
const (
	colName = iota
	colDescription
	colAudience
	colAgeRange
	colVenue
	colLat
	colLong
	colTime
	colOrganiser
	colCost
	colContact
	colTimePeriod
	colOneOffDate
	colExtraDates
	colDayOfWeek
	colFISLink
)

// headerRowCount is the number of leading rows in the sheet that carry column
// titles rather than activity data
const headerRowCount = 2

// defaultSheetCSVURL is the published CSV export of the community activities
// spreadsheet, overridable via SHEET_CSV_URL
const defaultSheetCSVURL = "https://docs.google.com/spreadsheets/d/1qkbwG1pSQWEVzpvlLfcDLzwDdBmWdSmTUZ_SZYJQxbY/gviz/tq?tqx=out:csv"

// RetryConfig defines retry behavior for failed collaborator requests
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// delayFor calculates the exponential backoff delay before the next attempt
func (r RetryConfig) delayFor(attempt int) time.Duration {
	delay := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt)))
	if delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay
}

// SheetsClient fetches the raw activity rows from the spreadsheet collaborator
type SheetsClient struct {
	httpClient  *http.Client
	csvURL      string
	retryConfig RetryConfig
}

// NewSheetsClient creates a sheets client configured from the environment
func NewSheetsClient() *SheetsClient {
	csvURL := os.Getenv("SHEET_CSV_URL")
	if csvURL == "" {
		csvURL = defaultSheetCSVURL
	}
	return NewSheetsClientWithURL(csvURL)
}

// NewSheetsClientWithURL creates a sheets client for a specific CSV export URL
func NewSheetsClientWithURL(csvURL string) *SheetsClient {
	return &SheetsClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		csvURL: csvURL,
		retryConfig: RetryConfig{
			MaxRetries:    3,
			InitialDelay:  1 * time.Second,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
		},
	}
}

// FetchRows downloads and parses the sheet. The two header rows are skipped
// and rows with an empty name cell are discarded. Transport failures are
// retried with exponential backoff; client errors (4xx) are not retried.
func (c *SheetsClient) FetchRows(ctx context.Context) ([]models.RawActivityRow, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		rows, err := c.attemptFetch(ctx)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if strings.Contains(err.Error(), "status 4") {
			break
		}
		if attempt < c.retryConfig.MaxRetries {
			delay := c.retryConfig.delayFor(attempt)
			log.Printf("[SHEETS] attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("sheet fetch failed after %d attempts: %w", c.retryConfig.MaxRetries+1, lastErr)
}

// attemptFetch performs a single download and parse
func (c *SheetsClient) attemptFetch(ctx context.Context) ([]models.RawActivityRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.csvURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sheet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sheet returned status %d: %s", resp.StatusCode, string(body))
	}

	return parseRows(resp.Body)
}

// parseRows reads CSV records into raw rows, applying the header-skip and
// empty-name policies
func parseRows(r io.Reader) ([]models.RawActivityRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // source rows are ragged

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet CSV: %w", err)
	}

	var rows []models.RawActivityRow
	for i, record := range records {
		if i < headerRowCount {
			continue
		}
		row := rowFromRecord(record)
		if strings.TrimSpace(row.Name) == "" {
			continue
		}
		rows = append(rows, row)
	}

	log.Printf("[SHEETS] parsed %d activity rows (%d records)", len(rows), len(records))
	return rows, nil
}

// rowFromRecord maps positional cells to the named row schema. Missing cells
// become empty strings so downstream string handling never branches on absence.
func rowFromRecord(record []string) models.RawActivityRow {
	cell := func(index int) string {
		if index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}

	return models.RawActivityRow{
		Name:        cell(colName),
		Description: cell(colDescription),
		Audience:    cell(colAudience),
		AgeRange:    cell(colAgeRange),
		Venue:       cell(colVenue),
		Lat:         cell(colLat),
		Long:        cell(colLong),
		Time:        cell(colTime),
		Organiser:   cell(colOrganiser),
		Cost:        cell(colCost),
		Contact:     cell(colContact),
		TimePeriod:  cell(colTimePeriod),
		OneOffDate:  cell(colOneOffDate),
		ExtraDates:  cell(colExtraDates),
		DayOfWeek:   cell(colDayOfWeek),
		FISLink:     cell(colFISLink),
	}
}
