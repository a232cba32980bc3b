package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// pageSize is the maxResults sent with every events.list request.
const pageSize = 250

// ErrNoTimeZone is returned when an events listing carries no usable zone.
var ErrNoTimeZone = errors.New("calendar has no time zone")

// Entry is one calendar from the user's calendar list.
type Entry struct {
	ID   string
	Name string
}

// EventPage holds every event of one calendar in a window, together with
// the calendar's own time zone.
type EventPage struct {
	TimeZone *time.Location
	Items    []*calendar.Event
}

// Client is a read-only wrapper around the Google Calendar API service.
type Client struct {
	service *calendar.Service

	// Recorder, when set, receives every raw API response.
	Recorder *Recorder
}

// NewClient creates a new Google Calendar API client using the provided HTTP
// client. Extra options such as option.WithEndpoint are passed through.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service}, nil
}

// ListCalendars returns every calendar on the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := c.service.CalendarList.List().Context(ctx).Pages(ctx, func(page *calendar.CalendarList) error {
		c.Recorder.Record("calendarList", page)
		for _, item := range page.Items {
			name := item.SummaryOverride
			if name == "" {
				name = item.Summary
			}
			entries = append(entries, Entry{ID: item.Id, Name: name})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	return entries, nil
}

// ListEvents retrieves events from a calendar within [timeMin, timeMax).
// Recurring events are expanded into instances ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) (*EventPage, error) {
	var (
		zoneName string
		items    []*calendar.Event
	)
	err := c.service.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true). // Expand recurring events
		OrderBy("startTime").
		MaxResults(pageSize).
		Context(ctx).
		Pages(ctx, func(page *calendar.Events) error {
			c.Recorder.Record("events "+calendarID, page)
			if zoneName == "" {
				zoneName = page.TimeZone
			}
			items = append(items, page.Items...)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	if zoneName == "" {
		return nil, fmt.Errorf("%s: %w", calendarID, ErrNoTimeZone)
	}
	zone, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("%s: unknown time zone %q: %w", calendarID, zoneName, err)
	}

	return &EventPage{TimeZone: zone, Items: items}, nil
}
