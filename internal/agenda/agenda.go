// Package agenda gathers events from the selected calendars and writes them
// out as text, free days or iCalendar.
package agenda

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	calclient "github.com/beekhof/gcal/internal/calendar"
	"github.com/beekhof/gcal/internal/event"
)

// groupCalendarSuffix marks Google's shared calendars (holidays, weather, ...).
const groupCalendarSuffix = "@group.v.calendar.google.com"

// Source is the read side of the Calendar API used by an Agenda.
type Source interface {
	ListCalendars(ctx context.Context) ([]calclient.Entry, error)
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) (*calclient.EventPage, error)
}

// Selection decides which calendars are read. Names compare
// case-insensitively and exclusion wins over inclusion.
type Selection struct {
	Include               []string // when non-empty, only these calendars
	Exclude               []string
	IncludeGroupCalendars bool
}

// Selects reports whether the calendar is part of the selection.
func (s Selection) Selects(c calclient.Entry) bool {
	if !s.IncludeGroupCalendars && strings.HasSuffix(c.ID, groupCalendarSuffix) {
		return false
	}
	if containsFold(s.Exclude, c.Name) {
		return false
	}
	return len(s.Include) == 0 || containsFold(s.Include, c.Name)
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// Window is the span of days to list. End is exclusive and falls on
// midnight of the day after the last listed day.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow covers the dates first through last inclusive, in first's location.
func NewWindow(first, last time.Time) (Window, error) {
	start := midnight(first)
	end := midnight(last.In(first.Location())).AddDate(0, 0, 1)
	if !end.After(start) {
		return Window{}, fmt.Errorf("end date %s is before start date %s", last.Format(time.DateOnly), first.Format(time.DateOnly))
	}
	return Window{Start: start, End: end}, nil
}

// DefaultWindow covers today and the following days.
func DefaultWindow(now time.Time, days int) Window {
	start := midnight(now)
	return Window{Start: start, End: start.AddDate(0, 0, days+1)}
}

// Last is the final day included in the window.
func (w Window) Last() time.Time {
	return w.End.AddDate(0, 0, -1)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Agenda reads events from the selected calendars of a Source.
type Agenda struct {
	Source    Source
	Selection Selection
	Logger    *zap.Logger

	// Strict aborts on the first record that cannot be normalized.
	// Otherwise such records are logged and skipped.
	Strict bool
	// Max limits the number of events returned; 0 means no limit.
	Max int
}

// NewAgenda creates a new Agenda instance.
func NewAgenda(source Source, selection Selection, logger *zap.Logger) *Agenda {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agenda{
		Source:    source,
		Selection: selection,
		Logger:    logger,
	}
}

// Calendars returns the selected calendars sorted by name, ignoring case.
func (a *Agenda) Calendars(ctx context.Context) ([]calclient.Entry, error) {
	all, err := a.Source.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	var selected []calclient.Entry
	for _, c := range all {
		if a.Selection.Selects(c) {
			selected = append(selected, c)
		} else {
			a.Logger.Debug("skipping calendar", zap.String("calendar", c.Name), zap.String("id", c.ID))
		}
	}

	for _, name := range a.Selection.Include {
		if !containsEntry(all, name) {
			a.Logger.Warn("no such calendar", zap.String("calendar", name))
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return strings.ToLower(selected[i].Name) < strings.ToLower(selected[j].Name)
	})
	return selected, nil
}

func containsEntry(entries []calclient.Entry, name string) bool {
	for _, e := range entries {
		if strings.EqualFold(e.Name, name) {
			return true
		}
	}
	return false
}

// Collect returns the events of every selected calendar that fall in the
// window, ordered by start time. Events starting together keep calendar order.
func (a *Agenda) Collect(ctx context.Context, w Window) ([]event.Event, error) {
	calendars, err := a.Calendars(ctx)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("calendars selected", zap.Int("count", len(calendars)))

	var events []event.Event
	for _, c := range calendars {
		page, err := a.Source.ListEvents(ctx, c.ID, w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", c.Name, err)
		}
		a.Logger.Debug("fetched events",
			zap.String("calendar", c.Name),
			zap.Stringer("zone", page.TimeZone),
			zap.Int("count", len(page.Items)))

		for _, raw := range page.Items {
			e, err := event.Normalize(raw, page.TimeZone)
			if err != nil {
				if a.Strict {
					return nil, fmt.Errorf("calendar %s: %w", c.Name, err)
				}
				a.logSkipped(c, err)
				continue
			}
			events = append(events, e)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	if a.Max > 0 && a.Max < len(events) {
		events = events[:a.Max]
	}
	return events, nil
}

func (a *Agenda) logSkipped(c calclient.Entry, err error) {
	fields := []zap.Field{zap.String("calendar", c.Name), zap.Error(err)}
	var recErr *event.RecordError
	if errors.As(err, &recErr) {
		fields = append(fields, zap.String("event", recErr.ID), zap.String("field", recErr.Field))
	}
	a.Logger.Warn("skipping event", fields...)
}
