package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ActivitySnapshot is the complete JSON structure published for the directory frontend
type ActivitySnapshot struct {
	Metadata   SnapshotMetadata `json:"metadata"`
	Activities []Activity       `json:"activities"`
}

// SnapshotMetadata contains metadata about one published activity dataset
type SnapshotMetadata struct {
	LastUpdated     time.Time `json:"lastUpdated"`
	TotalActivities int       `json:"totalActivities"`
	Source          string    `json:"source"`
	Version         string    `json:"version"`
	Region          string    `json:"region"`
}

// NewSnapshotMetadata creates metadata for a freshly normalized activity set
func NewSnapshotMetadata(total int, source string) SnapshotMetadata {
	return SnapshotMetadata{
		LastUpdated:     time.Now().UTC(),
		TotalActivities: total,
		Source:          source,
		Version:         "1.0",
		Region:          "Roehampton, London",
	}
}

// Activity represents a single community activity (a class, meal, walk, etc.)
type Activity struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// Audience
	Audience string `json:"audience"` // Children|Adults|Families|Everyone (open set, source is free text)
	AgeRange string `json:"ageRange,omitempty"`

	// Location
	Venue    string   `json:"venue"`
	Postcode string   `json:"postcode,omitempty"` // extracted from the venue text
	Lat      *float64 `json:"lat,omitempty"`
	Long     *float64 `json:"long,omitempty"`

	// Scheduling
	DaysOfWeek []string `json:"daysOfWeek"` // capitalized names, may contain the "No Set Day" sentinel
	Time       string   `json:"time"`
	TimePeriod string   `json:"timePeriod,omitempty"`
	OneOffDate string   `json:"oneOffDate,omitempty"`
	ExtraDates string   `json:"extraDates,omitempty"`

	// Cost & contact
	Cost     string   `json:"cost"`
	Contacts []string `json:"contacts,omitempty"`

	// Provider
	Organiser string `json:"organiser"`
	FISLink   string `json:"fisLink,omitempty"`

	// Derived: meters from the current user location, nil until computed.
	// Recomputed eagerly whenever the user location changes, never stale.
	Distance *float64 `json:"distance,omitempty"`
}

// RawActivityRow is the named-field image of one spreadsheet row. Positional
// column access happens exactly once, in the sheets client; everything
// downstream works from these fields.
type RawActivityRow struct {
	Name        string
	Description string
	Audience    string
	AgeRange    string
	Venue       string
	Lat         string
	Long        string
	Time        string
	Organiser   string
	Cost        string
	Contact     string
	TimePeriod  string
	OneOffDate  string
	ExtraDates  string
	DayOfWeek   string
	FISLink     string
}

// Day-of-week values, in display order
const (
	DayMonday    = "Monday"
	DayTuesday   = "Tuesday"
	DayWednesday = "Wednesday"
	DayThursday  = "Thursday"
	DayFriday    = "Friday"
	DaySaturday  = "Saturday"
	DaySunday    = "Sunday"
	DayNoSetDay  = "No Set Day"
)

// WeekDays lists the seven weekday names in order, excluding the sentinel
var WeekDays = []string{
	DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday, DaySunday,
}

// DaysOfWeek lists every selectable day value, including the no-set-day sentinel
var DaysOfWeek = append(append([]string{}, WeekDays...), DayNoSetDay)

// Audience labels used by the directory
const (
	AudienceChildren = "Children"
	AudienceAdults   = "Adults"
	AudienceFamilies = "Families"
	AudienceEveryone = "Everyone"
)

// Audiences lists the selectable audience labels
var Audiences = []string{AudienceChildren, AudienceAdults, AudienceFamilies, AudienceEveryone}

// Derived cost buckets
const (
	CostFree  = "Free"
	CostLow   = "Low Cost"
	CostOther = "Other"
)

// CostBuckets lists the selectable cost buckets
var CostBuckets = []string{CostFree, CostLow, CostOther}

// Time-period tags that mark an activity as non-recurring
const (
	TimePeriodOneOff       = "One-off Event"
	TimePeriodNonRepeating = "Other (non-repeating)"
)

var (
	// ukPostcodePattern matches a UK postcode token inside free text
	ukPostcodePattern = regexp.MustCompile(`(?i)\b[A-Z]{1,2}[0-9]{1,2}[A-Z]?\s*[0-9][A-Z]{2}\b`)

	// ukPostcodeExact matches a whole string that is a UK postcode
	ukPostcodeExact = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9]{1,2}[A-Z]?\s*[0-9][A-Z]{2}$`)

	// costAmountPattern extracts the first numeric amount from a cost string
	costAmountPattern = regexp.MustCompile(`\d+(\.\d+)?`)
)

// ExtractPostcode pulls a UK postcode out of venue text. Returns "" when no
// postcode is present; absence is not an error.
func ExtractPostcode(venue string) string {
	match := ukPostcodePattern.FindString(venue)
	if match == "" {
		return ""
	}
	return NormalizePostcode(match)
}

// ValidPostcode reports whether the string is a plausible UK postcode
func ValidPostcode(postcode string) bool {
	return ukPostcodeExact.MatchString(strings.TrimSpace(postcode))
}

// NormalizePostcode uppercases a postcode and standardises its spacing to a
// single space before the three-character inward code
func NormalizePostcode(postcode string) string {
	compact := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	if len(compact) < 4 {
		return compact
	}
	return compact[:len(compact)-3] + " " + compact[len(compact)-3:]
}

// CostBucket derives the cost category used for filtering: "Free" for the
// literal Free value, "Low Cost" when the first numeric amount is under 10,
// "Other" for everything else (including missing or non-numeric costs).
func CostBucket(cost string) string {
	if cost == "" {
		return CostOther
	}
	if cost == CostFree {
		return CostFree
	}
	amount := costAmountPattern.FindString(cost)
	if amount == "" {
		return CostOther
	}
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil || value >= 10 {
		return CostOther
	}
	return CostLow
}

// IsOneOffEvent reports whether the activity carries a non-recurring tag
func (a Activity) IsOneOffEvent() bool {
	return a.TimePeriod == TimePeriodOneOff || a.TimePeriod == TimePeriodNonRepeating
}

// HasCoordinate reports whether the activity has a resolved location
func (a Activity) HasCoordinate() bool {
	return a.Lat != nil && a.Long != nil
}

// ExpandDays expands the raw day-of-week cell into an explicit day list:
//   - "All Week" expands to all seven weekday names
//   - "Monday-Friday" (any day range) expands to the inclusive run of days
//   - "Other" becomes the "No Set Day" sentinel
//   - comma/ampersand-separated lists are split and matched per day
//
// An empty or unrecognized value yields an empty list; callers treat that as a
// data-entry gap, not an error.
func ExpandDays(raw string) []string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	if strings.EqualFold(value, "All Week") {
		return append([]string{}, WeekDays...)
	}
	if strings.EqualFold(value, "Other") || strings.EqualFold(value, DayNoSetDay) {
		return []string{DayNoSetDay}
	}
	if days, ok := expandDayRange(value); ok {
		return days
	}
	var days []string
	for _, part := range splitDayList(value) {
		day, ok := canonicalDay(part)
		if !ok {
			continue
		}
		if !containsString(days, day) {
			days = append(days, day)
		}
	}
	return days
}

// expandDayRange handles "Monday-Friday" style shorthand
func expandDayRange(value string) ([]string, bool) {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return nil, false
	}
	first, okFirst := canonicalDay(parts[0])
	last, okLast := canonicalDay(parts[1])
	if !okFirst || !okLast {
		return nil, false
	}
	start := dayIndex(first)
	end := dayIndex(last)
	if start > end {
		return nil, false
	}
	return append([]string{}, WeekDays[start:end+1]...), true
}

func splitDayList(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '&' || r == '/'
	})
}

func canonicalDay(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	for _, day := range WeekDays {
		if strings.EqualFold(trimmed, day) {
			return day, true
		}
	}
	return "", false
}

func dayIndex(day string) int {
	for i, d := range WeekDays {
		if d == day {
			return i
		}
	}
	return -1
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// SplitContacts turns the raw contact cell into an ordered list of contact
// strings. Lines and semicolon-separated entries become separate contacts.
func SplitContacts(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var contacts []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ';'
	}) {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			contacts = append(contacts, trimmed)
		}
	}
	return contacts
}
