package event

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
)

var eastern = time.FixedZone("EST", -5*60*60)

func mustNormalize(t *testing.T, raw *calendar.Event, zone *time.Location) Event {
	t.Helper()
	ev, err := Normalize(raw, zone)
	if err != nil {
		t.Fatalf("Normalize() returned an error: %v", err)
	}
	return ev
}

func allDayRecord(start, end string) *calendar.Event {
	return &calendar.Event{
		Kind:  Kind,
		Start: &calendar.EventDateTime{Date: start},
		End:   &calendar.EventDateTime{Date: end},
	}
}

func timedRecord(start, end string) *calendar.Event {
	return &calendar.Event{
		Kind:  Kind,
		Start: &calendar.EventDateTime{DateTime: start},
		End:   &calendar.EventDateTime{DateTime: end},
	}
}

func TestNormalize_NotAnEvent(t *testing.T) {
	missingKind := timedRecord("2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	missingKind.Kind = ""
	wrongKind := timedRecord("2025-03-10T09:00:00Z", "2025-03-10T10:00:00Z")
	wrongKind.Kind = "calendar#calendarListEntry"

	tests := []struct {
		name string
		raw  *calendar.Event
	}{
		{"nil record", nil},
		{"missing kind", missingKind},
		{"wrong kind", wrongKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, time.UTC)
			if !errors.Is(err, ErrMalformedRecord) {
				t.Fatalf("Expected ErrMalformedRecord, got %v", err)
			}
			var recErr *RecordError
			if !errors.As(err, &recErr) || recErr.Field != "kind" {
				t.Errorf("Expected a *RecordError for field 'kind', got %#v", err)
			}
		})
	}
}

func TestNormalize_AllDay(t *testing.T) {
	raw := allDayRecord("2025-03-10", "2025-03-11")
	raw.Summary = "Conference"
	raw.Organizer = &calendar.EventOrganizer{DisplayName: "Work"}

	ev := mustNormalize(t, raw, eastern)

	if !ev.AllDay {
		t.Error("Expected AllDay to be true")
	}
	if ev.Title != "Conference" {
		t.Errorf("Expected Title to be 'Conference', got '%s'", ev.Title)
	}
	if ev.Calendar != "Work" {
		t.Errorf("Expected Calendar to be 'Work', got '%s'", ev.Calendar)
	}
	for name, ts := range map[string]time.Time{"start": ev.Start, "end": ev.End} {
		if ts.Hour() != 0 || ts.Minute() != 0 || ts.Second() != 0 || ts.Nanosecond() != 0 {
			t.Errorf("Expected %s to be at midnight, got %v", name, ts)
		}
		if ts.Location() != eastern {
			t.Errorf("Expected %s to be in the calendar zone, got %v", name, ts.Location())
		}
	}
	if got := ev.End.Sub(ev.Start); got != 24*time.Hour {
		t.Errorf("Expected a one day span, got %v", got)
	}
}

func TestNormalize_TimestampKeepsOffset(t *testing.T) {
	ev := mustNormalize(t, timedRecord("2025-03-10T09:00:00-05:00", "2025-03-10T10:30:00-05:00"), time.UTC)

	if ev.AllDay {
		t.Error("Expected AllDay to be false")
	}
	if ev.Start.Hour() != 9 || ev.End.Hour() != 10 || ev.End.Minute() != 30 {
		t.Errorf("Expected 09:00-10:30 in the record's offset, got %v - %v", ev.Start, ev.End)
	}
	if _, offset := ev.Start.Zone(); offset != -5*60*60 {
		t.Errorf("Expected offset -05:00 to be preserved, got %d", offset)
	}
}

func TestNormalize_TimestampWithoutZone(t *testing.T) {
	ev := mustNormalize(t, timedRecord("2025-03-10T09:00:00", "2025-03-11"), eastern)

	if ev.Start.Location() != eastern {
		t.Errorf("Expected start in the default zone, got %v", ev.Start.Location())
	}
	want := time.Date(2025, 3, 10, 9, 0, 0, 0, eastern)
	if !ev.Start.Equal(want) {
		t.Errorf("Expected start %v, got %v", want, ev.Start)
	}
	// A dateTime end without a time component means midnight.
	wantEnd := time.Date(2025, 3, 11, 0, 0, 0, 0, eastern)
	if !ev.End.Equal(wantEnd) {
		t.Errorf("Expected end %v, got %v", wantEnd, ev.End)
	}
	if ev.AllDay {
		t.Error("Expected a dateTime start to never be all-day")
	}
}

func TestNormalize_NilZoneUsesLocal(t *testing.T) {
	ev := mustNormalize(t, allDayRecord("2025-03-10", "2025-03-11"), nil)
	if ev.Start.Location() != time.Local {
		t.Errorf("Expected time.Local, got %v", ev.Start.Location())
	}
}

func TestNormalize_AmbiguousTime(t *testing.T) {
	noStart := timedRecord("", "2025-03-10T10:00:00Z")
	noStart.Start = nil
	emptyEnd := timedRecord("2025-03-10T09:00:00Z", "")
	garbage := timedRecord("next tuesday", "2025-03-10T10:00:00Z")
	badDate := allDayRecord("2025-13-45", "2025-03-11")
	mixed := &calendar.Event{
		Kind:  Kind,
		Start: &calendar.EventDateTime{Date: "2025-03-10"},
		End:   &calendar.EventDateTime{DateTime: "2025-03-10T10:00:00Z"},
	}

	tests := []struct {
		name  string
		raw   *calendar.Event
		field string
	}{
		{"missing start", noStart, "start"},
		{"empty end", emptyEnd, "end"},
		{"unparseable timestamp", garbage, "start"},
		{"invalid date", badDate, "start"},
		{"mixed forms", mixed, "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw, time.UTC)
			if !errors.Is(err, ErrAmbiguousTime) {
				t.Fatalf("Expected ErrAmbiguousTime, got %v", err)
			}
			var recErr *RecordError
			if !errors.As(err, &recErr) {
				t.Fatalf("Expected a *RecordError, got %T", err)
			}
			if recErr.Field != tt.field {
				t.Errorf("Expected field '%s', got '%s'", tt.field, recErr.Field)
			}
		})
	}
}

func TestNormalize_Busy(t *testing.T) {
	tests := []struct {
		transparency string
		busy         bool
	}{
		{"", true},
		{"opaque", true},
		{"transparent", false},
	}
	for _, tt := range tests {
		raw := allDayRecord("2025-03-10", "2025-03-11")
		raw.Transparency = tt.transparency
		ev := mustNormalize(t, raw, time.UTC)
		if ev.Busy != tt.busy {
			t.Errorf("transparency %q: expected Busy=%v, got %v", tt.transparency, tt.busy, ev.Busy)
		}
	}
}

func TestNormalize_Defaults(t *testing.T) {
	ev := mustNormalize(t, allDayRecord("2025-03-10", "2025-03-11"), time.UTC)

	if ev.Title != Unknown {
		t.Errorf("Expected Title to default to '%s', got '%s'", Unknown, ev.Title)
	}
	if ev.Calendar != Unknown {
		t.Errorf("Expected Calendar to default to '%s', got '%s'", Unknown, ev.Calendar)
	}
	if ev.Location != "" || ev.Notes != "" {
		t.Errorf("Expected empty location and notes, got '%s' and '%s'", ev.Location, ev.Notes)
	}
	if ev.Attachments == nil || len(ev.Attachments) != 0 {
		t.Errorf("Expected an empty attachment list, got %#v", ev.Attachments)
	}
}

func TestNormalize_CalendarName(t *testing.T) {
	tests := []struct {
		name      string
		organizer *calendar.EventOrganizer
		want      string
	}{
		{"display name wins", &calendar.EventOrganizer{DisplayName: "Family", Email: "family@example.com"}, "Family"},
		{"email fallback", &calendar.EventOrganizer{Email: "me@example.com"}, "me@example.com"},
		{"empty organizer", &calendar.EventOrganizer{}, Unknown},
		{"no organizer", nil, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := allDayRecord("2025-03-10", "2025-03-11")
			raw.Organizer = tt.organizer
			if got := mustNormalize(t, raw, time.UTC).Calendar; got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestNormalize_Notes(t *testing.T) {
	tests := []struct {
		name        string
		description string
		link        string
		want        string
	}{
		{
			name:        "plain notes",
			description: "Bring slides",
			link:        "https://calendar.example/e/1",
			want:        "Bring slides",
		},
		{
			name:        "boilerplate with link",
			description: autogenWarning + "Flight UA 123",
			link:        "https://calendar.example/e/1",
			want:        "See https://calendar.example/e/1 for these notes auto-generated from email.",
		},
		{
			name:        "boilerplate without link",
			description: autogenWarning + "Flight UA 123",
			want:        "Flight UA 123",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := allDayRecord("2025-03-10", "2025-03-11")
			raw.Description = tt.description
			raw.HtmlLink = tt.link
			if got := mustNormalize(t, raw, time.UTC).Notes; got != tt.want {
				t.Errorf("Expected notes %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalize_Attachments(t *testing.T) {
	raw := allDayRecord("2025-03-10", "2025-03-11")
	raw.Attachments = []*calendar.EventAttachment{
		{Title: "Agenda", FileUrl: "https://drive.example/agenda", MimeType: "application/pdf"},
		{Title: "No URL"},
		nil,
		{FileUrl: "https://drive.example/untitled"},
		{Title: "Minutes", FileUrl: "https://drive.example/minutes"},
	}

	got := mustNormalize(t, raw, time.UTC).Attachments
	want := []Attachment{
		{Title: "Agenda", URL: "https://drive.example/agenda"},
		{Title: "Minutes", URL: "https://drive.example/minutes"},
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d attachments, got %d: %#v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("attachment %d: expected %#v, got %#v", i, want[i], got[i])
		}
	}
}

func TestClassify(t *testing.T) {
	if _, ok := Classify(nil); ok {
		t.Error("Expected nil to be unclassifiable")
	}
	if _, ok := Classify(&calendar.EventDateTime{TimeZone: "Europe/Paris"}); ok {
		t.Error("Expected a value with only a time zone to be unclassifiable")
	}
	v, ok := Classify(&calendar.EventDateTime{DateTime: "2025-03-10T09:00:00Z", Date: "2025-03-10"})
	if !ok {
		t.Fatal("Expected a value to be classified")
	}
	if _, isTimestamp := v.(Timestamp); !isTimestamp {
		t.Errorf("Expected dateTime to take precedence, got %T", v)
	}
	v, _ = Classify(&calendar.EventDateTime{Date: "2025-03-10"})
	if _, isDate := v.(Date); !isDate {
		t.Errorf("Expected a Date, got %T", v)
	}
}
