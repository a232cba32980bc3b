package agenda

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/beekhof/gcal/internal/event"
)

const productID = "-//gcal//EN"

const emptyCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + productID + "\r\nEND:VCALENDAR\r\n"

// WriteICS writes the events as one iCalendar document. stamp becomes the
// DTSTAMP of every event.
func WriteICS(w io.Writer, events []event.Event, stamp time.Time) error {
	// The encoder refuses a VCALENDAR without components.
	if len(events) == 0 {
		_, err := io.WriteString(w, emptyCalendar)
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, e := range events {
		cal.Children = append(cal.Children, toVEvent(e, stamp))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

func toVEvent(e event.Event, stamp time.Time) *ical.Component {
	vevent := ical.NewComponent(ical.CompEvent)

	uid := e.ID
	if uid == "" {
		uid = fmt.Sprintf("%s@gcal", e.Start.UTC().Format("20060102T150405Z"))
	}
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if e.AllDay {
		dtstart := ical.NewProp("DTSTART")
		dtstart.SetDate(e.Start)
		vevent.Props.Set(dtstart)

		dtend := ical.NewProp("DTEND")
		dtend.SetDate(e.End)
		vevent.Props.Set(dtend)
	} else {
		vevent.Props.SetDateTime("DTSTART", e.Start.UTC())
		vevent.Props.SetDateTime("DTEND", e.End.UTC())
	}

	vevent.Props.SetText(ical.PropSummary, e.Title)
	vevent.Props.SetText("CATEGORIES", e.Calendar)
	if e.Location != "" {
		vevent.Props.SetText(ical.PropLocation, e.Location)
	}
	if e.Notes != "" {
		vevent.Props.SetText(ical.PropDescription, e.Notes)
	}
	if !e.Busy {
		vevent.Props.SetText("TRANSP", "TRANSPARENT")
	}
	if e.Link != "" {
		link := ical.NewProp("URL")
		link.Value = e.Link
		vevent.Props.Set(link)
	}

	// ATTACH repeats, so append rather than Set.
	for _, a := range e.Attachments {
		attach := ical.NewProp("ATTACH")
		attach.Value = a.URL
		attach.Params.Set("FILENAME", a.Title)
		vevent.Props["ATTACH"] = append(vevent.Props["ATTACH"], *attach)
	}

	return vevent
}
