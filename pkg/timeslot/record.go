package timeslot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the serialized shape of a Timeslot: epoch milliseconds for instants,
// the RRULE text and the cancelled occurrence starts.
type Record struct {
	From    int64   `json:"from"`
	To      int64   `json:"to"`
	Recur   string  `json:"recur,omitempty"`
	ExDates []int64 `json:"exdates,omitempty"`
}

func (t Timeslot) ToRecord() Record {
	r := Record{
		From:  t.from.UnixMilli(),
		To:    t.to.UnixMilli(),
		Recur: t.recur,
	}
	if len(t.exDates) > 0 {
		r.ExDates = make([]int64, len(t.exDates))
		for i, ex := range t.exDates {
			r.ExDates[i] = ex.UnixMilli()
		}
	}
	return r
}

// FromRecord decodes a Record. Instants are returned in UTC.
func FromRecord(r Record) (Timeslot, error) {
	var exDates []time.Time
	for _, ex := range r.ExDates {
		exDates = append(exDates, time.UnixMilli(ex).UTC())
	}
	return NewRecurring(time.UnixMilli(r.From).UTC(), time.UnixMilli(r.To).UTC(), r.Recur, exDates)
}

func (t Timeslot) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.ToRecord())
}

func (t *Timeslot) UnmarshalJSON(data []byte) error {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("could not decode timeslot: %w", err)
	}
	slot, err := FromRecord(r)
	if err != nil {
		return err
	}
	*t = slot
	return nil
}

func (a Availability) Records() []Record {
	records := make([]Record, 0, len(a))
	for _, slot := range a {
		records = append(records, slot.ToRecord())
	}
	return records
}

func AvailabilityFromRecords(records []Record) (Availability, error) {
	a := make(Availability, 0, len(records))
	for i, r := range records {
		slot, err := FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		a = append(a, slot)
	}
	return a, nil
}
