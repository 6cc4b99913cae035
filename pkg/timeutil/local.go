package timeutil

import (
	"sync"
	"time"
	_ "time/tzdata"
)

// Zone is the organization-local zone used for every business-rule comparison.
const Zone = "Europe/Warsaw"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns the organization-local zone.
func Location() *time.Location {
	locOnce.Do(func() {
		l, err := time.LoadLocation(Zone)
		if err != nil {
			// tzdata is embedded, so this only happens on a corrupted build.
			l = time.FixedZone("CET", 3600)
		}
		loc = l
	})
	return loc
}

// Now returns the current instant in organization-local time.
func Now() time.Time {
	return time.Now().In(Location())
}

// ToLocal normalizes a timestamp read from storage or input into organization-local time.
//
// Values without zone information surface from the drivers as UTC-located wall clocks;
// their wall clock is reinterpreted as local time. Zoned values are converted.
func ToLocal(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	l := Location()
	if t.Location() == time.UTC {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), l)
	}
	return t.In(l)
}

// Wall returns the local wall clock of t as a zone-less value, the form stored in
// timestamp columns. ToLocal(Wall(t)) equals t as an instant.
func Wall(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	lt := t.In(Location())
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), lt.Minute(), lt.Second(), lt.Nanosecond(), time.UTC)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	lt := ToLocal(t)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, Location())
}

// StartOfWeek returns Monday 00:00 local time of the week containing t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ParseDate parses a YYYY-MM-DD string as a local calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Location())
}

