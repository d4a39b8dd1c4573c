package timeutil

import (
	"sync"
	"time"
)

// DefaultZone is the shop's zone when nothing else is configured.
const DefaultZone = "Asia/Kolkata"

var (
	mu    sync.RWMutex
	local *time.Location
)

func init() {
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		// Fallback: create fixed zone if tzdata is not available
		loc = time.FixedZone("IST", 5*60*60+30*60) // UTC+5:30
	}
	local = loc
}

// SetZone switches the shop zone used by every helper in this package.
// An empty name keeps the current zone.
func SetZone(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	SetLocation(loc)
	return nil
}

// SetLocation is SetZone for an already resolved location.
func SetLocation(loc *time.Location) {
	mu.Lock()
	local = loc
	mu.Unlock()
}

// Location returns the shop zone.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return local
}

// Now returns the current time in the shop zone
func Now() time.Time {
	return time.Now().In(Location())
}

// ToLocal converts any time to the shop zone
func ToLocal(t time.Time) time.Time {
	return t.In(Location())
}

// ParseDate parses a YYYY-MM-DD string as midnight in the shop zone
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Location())
}

// FormatDate formats the calendar day of t in the shop zone
func FormatDate(t time.Time) string {
	return t.In(Location()).Format(DateLayout)
}

// StartOfDay returns the start of day (00:00:00) in the shop zone for the given time
func StartOfDay(t time.Time) time.Time {
	l := t.In(Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, l.Location())
}

// EndOfDay returns the end of day (23:59:59.999999999) in the shop zone for the given time
func EndOfDay(t time.Time) time.Time {
	l := t.In(Location())
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, 999999999, l.Location())
}

// AddDays moves t by n calendar days. Uses the calendar rather than 24h
// steps so DST transitions never skip or repeat a date.
func AddDays(t time.Time, n int) time.Time {
	l := t.In(Location())
	return time.Date(l.Year(), l.Month(), l.Day()+n, 0, 0, 0, 0, l.Location())
}

// StartOfMonth returns the first day of t's month in the shop zone
func StartOfMonth(t time.Time) time.Time {
	l := t.In(Location())
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, l.Location())
}

// Common layouts
const (
	DateLayout     = "2006-01-02"
	MonthLayout    = "2006-01"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)
