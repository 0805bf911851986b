package services

import (
	"context"
	"log"

	"roehampton-community-directory/internal/geo"
	"roehampton-community-directory/internal/models"
)

// Normalizer converts raw spreadsheet rows into canonical Activity values.
// Coordinate resolution prefers explicit, regionally-plausible lat/long cells
// over postcode-derived coordinates; when neither is available the activity
// is produced without a coordinate rather than rejected.
type Normalizer struct {
	postcodes *PostcodeClient
}

// NewNormalizer creates a normalizer. A nil postcode client disables the
// postcode-derived coordinate fallback.
func NewNormalizer(postcodes *PostcodeClient) *Normalizer {
	return &Normalizer{postcodes: postcodes}
}

// Normalize converts one load of raw rows into canonical activities. IDs are
// ordinal positions within this load and are stable only for its lifetime.
// Every failure mode is recovered per row: postcode lookup failures are
// logged and leave the coordinate unset, unrecognized day values are logged
// and leave the day list empty. One bad row never drops the dataset.
func (n *Normalizer) Normalize(ctx context.Context, rows []models.RawActivityRow) []models.Activity {
	activities := make([]models.Activity, 0, len(rows))

	for i, row := range rows {
		activity := n.normalizeRow(ctx, i+1, row)
		activities = append(activities, activity)
	}

	log.Printf("[NORMALIZE] normalized %d activities", len(activities))
	return activities
}

func (n *Normalizer) normalizeRow(ctx context.Context, ordinal int, row models.RawActivityRow) models.Activity {
	activity := models.Activity{
		ID:          ordinal,
		Name:        row.Name,
		Description: row.Description,
		Audience:    row.Audience,
		AgeRange:    row.AgeRange,
		Venue:       row.Venue,
		Time:        row.Time,
		TimePeriod:  row.TimePeriod,
		OneOffDate:  row.OneOffDate,
		ExtraDates:  row.ExtraDates,
		Cost:        row.Cost,
		Contacts:    models.SplitContacts(row.Contact),
		Organiser:   row.Organiser,
		FISLink:     row.FISLink,
		Postcode:    models.ExtractPostcode(row.Venue),
	}

	activity.DaysOfWeek = models.ExpandDays(row.DayOfWeek)
	if len(activity.DaysOfWeek) == 0 && row.DayOfWeek != "" {
		log.Printf("[NORMALIZE] row %d (%s): unrecognized day value %q", ordinal, row.Name, row.DayOfWeek)
	}

	n.resolveCoordinate(ctx, &activity, row)
	return activity
}

// resolveCoordinate applies the precedence policy: validated explicit
// coordinates, then postcode-derived coordinates, then none
func (n *Normalizer) resolveCoordinate(ctx context.Context, activity *models.Activity, row models.RawActivityRow) {
	if lat, long, ok := geo.ParsePlausibleLondonCoordinate(row.Lat, row.Long); ok {
		activity.Lat = &lat
		activity.Long = &long
		return
	}

	if activity.Postcode == "" || n.postcodes == nil {
		return
	}

	coord, err := n.postcodes.Lookup(ctx, activity.Postcode)
	if err != nil {
		log.Printf("[NORMALIZE] row %d (%s): postcode lookup failed for %q: %v",
			activity.ID, activity.Name, activity.Postcode, err)
		return
	}
	if coord == nil {
		return
	}
	activity.Lat = &coord.Lat
	activity.Long = &coord.Long
}
