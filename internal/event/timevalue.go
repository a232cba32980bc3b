package event

import (
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// TimeValue is one end of an event as the API reports it: either a
// Timestamp or a Date.
type TimeValue interface {
	// Resolve turns the value into an instant, placing it in zone when the
	// value itself carries no offset.
	Resolve(zone *time.Location) (time.Time, error)
	String() string
}

// Timestamp is a dateTime value, normally RFC 3339 with an offset.
type Timestamp string

// Date is a bare YYYY-MM-DD value marking an all-day boundary.
type Date string

// Classify picks the variant of an API start or end value. It reports false
// when the value carries neither a dateTime nor a date.
func Classify(edt *calendar.EventDateTime) (TimeValue, bool) {
	switch {
	case edt == nil:
		return nil, false
	case edt.DateTime != "":
		return Timestamp(edt.DateTime), true
	case edt.Date != "":
		return Date(edt.Date), true
	}
	return nil, false
}

// Layouts tried, in order, for timestamps that have no offset.
var localTimestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	dateLayout,
}

func (t Timestamp) Resolve(zone *time.Location) (time.Time, error) {
	s := string(t)
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range localTimestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, zone); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) String() string { return string(t) }

func (d Date) Resolve(zone *time.Location) (time.Time, error) {
	ts, err := time.ParseInLocation(dateLayout, string(d), zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q: %w", string(d), err)
	}
	return ts, nil
}

func (d Date) String() string { return string(d) }
