package availability

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tutorbook/tutorbook/pkg/timeslot"
)

const (
	productId     = "-//Tutorbook//Availability//EN"
	icalUTCLayout = "20060102T150405Z"
)

var ErrInvalidCalendar = errors.New("invalid calendar")

// EncodeICS renders availability as a VCALENDAR with one VEVENT per slot.
// Recurrence rules and exception dates are carried over unchanged.
func EncodeICS(personUid string, availability timeslot.Availability, stamp time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productId)
	cal.Props.SetText(ical.PropName, "Availability "+personUid)

	for i, slot := range availability {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%d@tutorbook", personUid, i))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, slot.From().UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, slot.To().UTC())
		event.Props.SetText(ical.PropSummary, "Available")
		event.Props.SetText(ical.PropTransparency, "TRANSPARENT")

		if slot.IsRecurring() {
			rrule := ical.NewProp(ical.PropRecurrenceRule)
			rrule.Value = strings.TrimPrefix(strings.TrimSpace(slot.Recur()), "RRULE:")
			event.Props.Add(rrule)
		}
		if exDates := slot.ExceptionDates(); len(exDates) > 0 {
			values := make([]string, 0, len(exDates))
			for _, ex := range exDates {
				values = append(values, ex.UTC().Format(icalUTCLayout))
			}
			exdate := ical.NewProp(ical.PropExceptionDates)
			exdate.Value = strings.Join(values, ",")
			event.Props.Add(exdate)
		}
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeICS reads every VEVENT of a calendar back into availability slots.
func DecodeICS(r io.Reader) (timeslot.Availability, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}

	availability := timeslot.Availability{}
	for _, event := range cal.Events() {
		from, err := event.DateTimeStart(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: DTSTART: %v", ErrInvalidCalendar, err)
		}
		to, err := event.DateTimeEnd(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: DTEND: %v", ErrInvalidCalendar, err)
		}

		var recur string
		if prop := event.Props.Get(ical.PropRecurrenceRule); prop != nil && prop.Value != "" {
			recur = "RRULE:" + prop.Value
		}
		exDates, err := exceptionDates(event, from)
		if err != nil {
			return nil, err
		}

		slot, err := timeslot.NewRecurring(from.UTC(), to.UTC(), recur, exDates)
		if err != nil {
			return nil, err
		}
		availability = append(availability, slot)
	}
	return availability, nil
}

// exceptionDates reads every EXDATE value, honouring TZID. DATE values exclude
// the occurrence starting that day at the time of DTSTART.
func exceptionDates(event ical.Event, start time.Time) ([]time.Time, error) {
	var exDates []time.Time
	for _, prop := range event.Props.Values(ical.PropExceptionDates) {
		for _, value := range strings.Split(prop.Value, ",") {
			single := ical.Prop{Name: prop.Name, Params: prop.Params, Value: strings.TrimSpace(value)}
			ex, err := single.DateTime(start.Location())
			if err != nil {
				return nil, fmt.Errorf("%w: EXDATE %q: %v", ErrInvalidCalendar, value, err)
			}
			if single.ValueType() == ical.ValueDate {
				ex = time.Date(ex.Year(), ex.Month(), ex.Day(),
					start.Hour(), start.Minute(), start.Second(), 0, start.Location())
			}
			exDates = append(exDates, ex.UTC())
		}
	}
	return exDates, nil
}
