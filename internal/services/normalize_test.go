package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"

	"roehampton-community-directory/internal/models"
)

func TestNormalizePrefersExplicitCoordinates(t *testing.T) {
	var requests int64
	server := newPostcodeTestServer(t, &requests)
	defer server.Close()

	normalizer := NewNormalizer(NewPostcodeClientWithURL(server.URL))
	rows := []models.RawActivityRow{
		{
			Name:  "Tai Chi",
			Venue: "Barn Elms, SW15 4DQ",
			Lat:   "51.4727",
			Long:  "-0.2414",
		},
	}

	activities := normalizer.Normalize(context.Background(), rows)
	if len(activities) != 1 {
		t.Fatalf("Expected 1 activity, got %d", len(activities))
	}

	a := activities[0]
	if !a.HasCoordinate() || *a.Lat != 51.4727 || *a.Long != -0.2414 {
		t.Errorf("Expected explicit coordinates to be used, got (%v, %v)", a.Lat, a.Long)
	}
	if atomic.LoadInt64(&requests) != 0 {
		t.Errorf("Valid explicit coordinates should skip the postcode lookup, saw %d requests", requests)
	}
}

func TestNormalizeFallsBackToPostcode(t *testing.T) {
	server := newPostcodeTestServer(t, nil)
	defer server.Close()

	normalizer := NewNormalizer(NewPostcodeClientWithURL(server.URL))
	rows := []models.RawActivityRow{
		{
			Name:  "After school snacks",
			Venue: "BASE Youth Club, 33-35 Danebury Avenue Roehampton SW15 4DQ",
			// Implausible cells: swapped columns, treated as absent
			Lat:  "-0.2485",
			Long: "51.4576",
		},
	}

	activities := normalizer.Normalize(context.Background(), rows)
	a := activities[0]

	if a.Postcode != "SW15 4DQ" {
		t.Errorf("Postcode = %q, want SW15 4DQ", a.Postcode)
	}
	if !a.HasCoordinate() || *a.Lat != 51.4576 || *a.Long != -0.2485 {
		t.Errorf("Expected postcode-derived coordinate, got (%v, %v)", a.Lat, a.Long)
	}
}

func TestNormalizeNoCoordinateAvailable(t *testing.T) {
	normalizer := NewNormalizer(nil)
	rows := []models.RawActivityRow{
		{Name: "Yoga", Venue: "Newlands Hall"},
	}

	a := normalizer.Normalize(context.Background(), rows)[0]
	if a.HasCoordinate() {
		t.Errorf("No explicit coordinate and no postcode should leave location unset, got (%v, %v)", a.Lat, a.Long)
	}
	if a.Distance != nil {
		t.Error("Distance must initialize to nil")
	}
}

func TestNormalizeLookupFailureStillProducesActivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	normalizer := NewNormalizer(NewPostcodeClientWithURL(server.URL))
	rows := []models.RawActivityRow{
		{Name: "Community Lunch", Venue: "Methodist Church, SW15 4EB"},
	}

	activities := normalizer.Normalize(context.Background(), rows)
	if len(activities) != 1 {
		t.Fatal("Lookup failure must not drop the activity")
	}
	if activities[0].HasCoordinate() {
		t.Error("Failed lookup should leave the coordinate unset")
	}
}

func TestNormalizeOrdinalIDs(t *testing.T) {
	normalizer := NewNormalizer(nil)
	rows := []models.RawActivityRow{
		{Name: "First"},
		{Name: "Second"},
		{Name: "Third"},
	}

	activities := normalizer.Normalize(context.Background(), rows)
	if !reflect.DeepEqual(activityIDs(activities), []int{1, 2, 3}) {
		t.Errorf("IDs should be ordinal within one load, got %v", activityIDs(activities))
	}
}

func TestNormalizeExpandsDaysAndContacts(t *testing.T) {
	normalizer := NewNormalizer(nil)
	rows := []models.RawActivityRow{
		{
			Name:      "NEET support",
			DayOfWeek: "Monday-Friday",
			Contact:   "02088715222; info@base.org.uk",
		},
		{
			Name:      "Pop-up market",
			DayOfWeek: "whenever",
		},
	}

	activities := normalizer.Normalize(context.Background(), rows)

	wantDays := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	if !reflect.DeepEqual(activities[0].DaysOfWeek, wantDays) {
		t.Errorf("DaysOfWeek = %v, want %v", activities[0].DaysOfWeek, wantDays)
	}
	if !reflect.DeepEqual(activities[0].Contacts, []string{"02088715222", "info@base.org.uk"}) {
		t.Errorf("Contacts = %v", activities[0].Contacts)
	}

	// Unrecognized day value is a data-entry gap, not a rejection
	if len(activities) != 2 {
		t.Fatal("Unrecognized day value must not drop the row")
	}
	if len(activities[1].DaysOfWeek) != 0 {
		t.Errorf("Unrecognized day value should yield an empty list, got %v", activities[1].DaysOfWeek)
	}
}

func TestNormalizeMissingCellsBecomeEmptyStrings(t *testing.T) {
	normalizer := NewNormalizer(nil)
	a := normalizer.Normalize(context.Background(), []models.RawActivityRow{{Name: "Bare"}})[0]

	if a.Description != "" || a.Venue != "" || a.Organiser != "" || a.Cost != "" {
		t.Errorf("Missing cells must normalize to empty strings, got %+v", a)
	}
	if a.Contacts != nil {
		t.Errorf("Missing contact cell should yield no contacts, got %v", a.Contacts)
	}
}
