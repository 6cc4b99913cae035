package models

import (
	"time"

	"gorm.io/datatypes"
)

// NewDate stores the calendar day of t (in t's own location) as a zone-less date.
func NewDate(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// FormatDate renders a stored date as YYYY-MM-DD.
func FormatDate(d datatypes.Date) string {
	t := time.Time(d)
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
