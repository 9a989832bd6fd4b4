package person

import (
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Person is anyone who can declare availability or attend a meeting: tutors,
// students and parents alike.
type Person struct {
	Id       int
	Uid      string
	Name     string
	Settings Settings
}

type Settings struct {
	Timezone     string
	WeekFirstDay time.Weekday
}

// Location resolves the person's timezone, falling back to UTC when it is unset or unknown.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		log.Warnf("unknown timezone %q, using UTC: %v", s.Timezone, err)
		return time.UTC
	}
	return loc
}

func ParseWeekday(day string) time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), day) {
			return d
		}
	}
	return time.Monday
}
