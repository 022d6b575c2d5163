package timeutil

import (
	"time"
)

// Location is the business timezone. Africa/Cairo unless SetLocation is called.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Africa/Cairo")
	if err != nil {
		// Fallback when tzdata is missing from the image
		Location = time.FixedZone("EET", 2*60*60)
	}
}

// SetLocation switches the business timezone (config business.timezone).
func SetLocation(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	Location = loc
	return nil
}

// Now returns the current time in the business timezone
func Now() time.Time {
	return time.Now().In(Location)
}

// ParseDate parses a YYYY-MM-DD day in the business timezone
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Location)
}

// DayKey returns the YYYY-MM-DD key of the calendar day containing t.
// Daily stats and counters are keyed by it.
func DayKey(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// StartOfDay returns 00:00:00 of t's day in the business timezone
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Location)
}

// EndOfDay returns 23:59:59.999999999 of t's day in the business timezone
func EndOfDay(t time.Time) time.Time {
	l := t.In(Location)
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, 999999999, Location)
}

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	DateTimeLayout = "2006-01-02 15:04:05"
	StampLayout    = "02012006"
)
