package agenda

import (
	"fmt"
	"io"
	"strings"
	"time"

	calclient "github.com/beekhof/gcal/internal/calendar"
	"github.com/beekhof/gcal/internal/event"
)

// separator goes between rendered events.
var separator = strings.Repeat("-", 25)

// WriteText renders each event, with a separator line between events.
func WriteText(w io.Writer, events []event.Event, opts event.DisplayOptions) error {
	for i, e := range events {
		if i > 0 {
			if _, err := fmt.Fprintln(w, separator); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, event.Render(e, opts)); err != nil {
			return err
		}
	}
	return nil
}

// WriteFreeDays prints one "2006-01-02 Mon" line per day.
func WriteFreeDays(w io.Writer, days []time.Time) error {
	for _, d := range days {
		if _, err := fmt.Fprintln(w, d.Format("2006-01-02 Mon")); err != nil {
			return err
		}
	}
	return nil
}

// WriteCalendars prints one calendar name per line.
func WriteCalendars(w io.Writer, calendars []calclient.Entry) error {
	for _, c := range calendars {
		if _, err := fmt.Fprintln(w, c.Name); err != nil {
			return err
		}
	}
	return nil
}
