package models

// Coordinate is a latitude/longitude pair in decimal degrees
type Coordinate struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// MaxDistanceUnbounded is the sentinel meaning "no distance limit". The
// frontend's distance slider tops out at 10 km and renders that position as
// infinite, so a limit at or beyond this value disables the dimension.
const MaxDistanceUnbounded = 10000.0

// FilterCriteria is the immutable set of user-selected filter dimensions
// passed by value into the filter engine. An empty slice on any dimension
// means "no restriction", never "match nothing". The engine must not mutate
// a criteria value it receives.
type FilterCriteria struct {
	SearchTerm string

	Audience []string
	Cost     []string
	Days     []string

	IsOneOff bool

	// MaxDistance is in meters. nil disables distance filtering entirely, as
	// does any value >= MaxDistanceUnbounded.
	MaxDistance *float64

	// UserLocation is the coordinate distances are computed against; nil when
	// neither a postcode nor a device location is known.
	UserLocation *Coordinate
}

// DistanceFilterEnabled reports whether distance is an active filter dimension
func (c FilterCriteria) DistanceFilterEnabled() bool {
	return c.MaxDistance != nil && *c.MaxDistance < MaxDistanceUnbounded
}

// PinSet is a set of activity ids marking the user's pinned activities.
// Membership is its only attribute; it carries no durability guarantees.
type PinSet map[int]struct{}

// NewPinSet returns an empty pin set
func NewPinSet() PinSet {
	return PinSet{}
}

// Contains reports whether the activity id is pinned
func (p PinSet) Contains(id int) bool {
	_, ok := p[id]
	return ok
}

// IDs returns the pinned activity ids in ascending order
func (p PinSet) IDs() []int {
	ids := make([]int, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}
