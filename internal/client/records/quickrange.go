package records

import (
	"fmt"
	"time"

	"fixtrack/internal/timeutil"
)

// Quick-range tags
const (
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	RangeLast7     = "last7"
	RangeThisMonth = "thisMonth"
	RangeAllTime   = "allTime"
	RangeCustom    = "custom"
)

// QuickRanges lists the tags in display order
var QuickRanges = []string{RangeToday, RangeYesterday, RangeLast7, RangeThisMonth, RangeAllTime, RangeCustom}

// Bounds computes the YYYY-MM-DD start and end of a quick-range tag on the
// shop's local calendar. allTime has an empty start. custom has no bounds of
// its own; ok is false for it.
func Bounds(tag string, now time.Time) (start, end string, ok bool, err error) {
	today := timeutil.StartOfDay(now)
	todayStr := timeutil.FormatDate(today)

	switch tag {
	case RangeToday:
		return todayStr, todayStr, true, nil
	case RangeYesterday:
		y := timeutil.FormatDate(timeutil.AddDays(today, -1))
		return y, y, true, nil
	case RangeLast7:
		return timeutil.FormatDate(timeutil.AddDays(today, -6)), todayStr, true, nil
	case RangeThisMonth:
		return timeutil.FormatDate(timeutil.StartOfMonth(today)), todayStr, true, nil
	case RangeAllTime:
		return "", todayStr, true, nil
	case RangeCustom:
		return "", "", false, nil
	default:
		return "", "", false, fmt.Errorf("%w: unknown quick range %q", ErrInvalidFilter, tag)
	}
}
