package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Kind is the type discriminator the Calendar API puts on every event record.
const Kind = "calendar#event"

// Unknown is used for a missing title or calendar name.
const Unknown = "UNKNOWN"

// autogenWarning prefixes the description of events Google creates from email.
const autogenWarning = "To see detailed information for automatically created events like this one, use the official Google Calendar app. https://g.co/calendar\n\n"

var (
	// ErrMalformedRecord means the record is not a calendar event at all.
	ErrMalformedRecord = errors.New("record is not a calendar event")

	// ErrAmbiguousTime means a start or end value is neither a usable
	// timestamp nor a usable date.
	ErrAmbiguousTime = errors.New("time value is neither a timestamp nor a date")
)

// RecordError describes why a single raw record could not be normalized.
type RecordError struct {
	ID    string // event ID, if the record had one
	Field string // "kind", "start" or "end"
	Value string // the offending raw value
	Err   error  // ErrMalformedRecord or ErrAmbiguousTime
}

func (e *RecordError) Error() string {
	id := e.ID
	if id == "" {
		id = "<no id>"
	}
	return fmt.Sprintf("event %s: %s %q: %v", id, e.Field, e.Value, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Attachment is a file attached to an event.
type Attachment struct {
	Title string
	URL   string
}

// Event is the normalized form of one calendar event. Start and End always
// carry a location. For all-day events End is exclusive: a one-day event
// ends at midnight of the following day.
type Event struct {
	ID          string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Busy        bool
	Calendar    string
	Title       string
	Location    string
	Notes       string
	Link        string
	Attachments []Attachment
}

// Normalize converts a raw API event into an Event. Times without an explicit
// offset are placed in defaultZone, which is the default time zone of the
// calendar the record came from (time.Local if nil).
//
// The returned error is always a *RecordError wrapping ErrMalformedRecord or
// ErrAmbiguousTime.
func Normalize(raw *calendar.Event, defaultZone *time.Location) (Event, error) {
	if raw == nil {
		return Event{}, &RecordError{Field: "kind", Err: ErrMalformedRecord}
	}
	if raw.Kind != Kind {
		return Event{}, &RecordError{ID: raw.Id, Field: "kind", Value: raw.Kind, Err: ErrMalformedRecord}
	}
	if defaultZone == nil {
		defaultZone = time.Local
	}

	startValue, start, err := resolveTime(raw.Id, "start", raw.Start, defaultZone)
	if err != nil {
		return Event{}, err
	}
	endValue, end, err := resolveTime(raw.Id, "end", raw.End, defaultZone)
	if err != nil {
		return Event{}, err
	}

	_, startIsDate := startValue.(Date)
	_, endIsDate := endValue.(Date)
	if startIsDate != endIsDate {
		return Event{}, &RecordError{ID: raw.Id, Field: "end", Value: endValue.String(), Err: ErrAmbiguousTime}
	}

	ev := Event{
		ID:          raw.Id,
		Start:       start,
		End:         end,
		AllDay:      startIsDate,
		Busy:        raw.Transparency != "transparent",
		Calendar:    calendarName(raw.Organizer),
		Title:       raw.Summary,
		Location:    raw.Location,
		Notes:       notes(raw.Description, raw.HtmlLink),
		Link:        raw.HtmlLink,
		Attachments: attachments(raw.Attachments),
	}
	if ev.Title == "" {
		ev.Title = Unknown
	}
	return ev, nil
}

func resolveTime(id, field string, edt *calendar.EventDateTime, zone *time.Location) (TimeValue, time.Time, error) {
	v, ok := Classify(edt)
	if !ok {
		return nil, time.Time{}, &RecordError{ID: id, Field: field, Err: ErrAmbiguousTime}
	}
	t, err := v.Resolve(zone)
	if err != nil {
		return nil, time.Time{}, &RecordError{ID: id, Field: field, Value: v.String(), Err: ErrAmbiguousTime}
	}
	return v, t, nil
}

func calendarName(org *calendar.EventOrganizer) string {
	switch {
	case org == nil:
		return Unknown
	case org.DisplayName != "":
		return org.DisplayName
	case org.Email != "":
		return org.Email
	}
	return Unknown
}

func notes(description, link string) string {
	if !strings.HasPrefix(description, autogenWarning) {
		return description
	}
	if link != "" {
		return fmt.Sprintf("See %s for these notes auto-generated from email.", link)
	}
	return strings.TrimPrefix(description, autogenWarning)
}

func attachments(raw []*calendar.EventAttachment) []Attachment {
	out := []Attachment{}
	for _, a := range raw {
		if a == nil || a.Title == "" || a.FileUrl == "" {
			continue
		}
		out = append(out, Attachment{Title: a.Title, URL: a.FileUrl})
	}
	return out
}
