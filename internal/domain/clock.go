package domain

import (
	"fmt"
	"time"
)

// LocalZone returns the fixed-offset zone the gate operates in. An offset of 7 yields WIB.
func LocalZone(offsetHours int) *time.Location {
	name := fmt.Sprintf("UTC%+d", offsetHours)
	if offsetHours == 7 {
		name = "WIB"
	}
	return time.FixedZone(name, offsetHours*60*60)
}

// MonthRange returns the inclusive bounds of a calendar month in loc, with the end
// truncated to millisecond precision.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}
