package domain

import "time"

// DefaultActivityLimit caps unfiltered timeline reads to bound response size.
const DefaultActivityLimit = 50

// MaxActivityLimit is the largest page size a caller may request.
const MaxActivityLimit = 1000

// DateRange bounds a timeline query by creation time.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// TimelineFilters shapes a timeline query. The zero value means no filtering;
// a zero Limit is replaced with DefaultActivityLimit at query time.
type TimelineFilters struct {
	DateRange     *DateRange
	ActivityTypes []ActivityType
	TechnicianIDs []string
	SearchQuery   string
	Limit         int
	Offset        int
}

// EffectiveLimit returns the page size to apply for this filter set.
func (f *TimelineFilters) EffectiveLimit() int {
	if f == nil || f.Limit <= 0 {
		return DefaultActivityLimit
	}
	return f.Limit
}

// EffectiveOffset returns the offset to apply for this filter set.
func (f *TimelineFilters) EffectiveOffset() int {
	if f == nil || f.Offset < 0 {
		return 0
	}
	return f.Offset
}
