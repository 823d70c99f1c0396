package utils

import (
	"fmt"
	"time"
)

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MinutesOfDay returns minutes elapsed since local midnight.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func IsWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func PrettyDate(date time.Time) string {
	return fmt.Sprintf("%02d %s %d - %02d:%02d %s",
		date.Day(),
		date.Month().String()[:3],
		date.Year(),
		date.Hour(),
		date.Minute(),
		date.Format("MST"),
	)
}

// DaysAgo returns the unix timestamp lookback days before now.
func DaysAgo(now time.Time, days int) int64 {
	return now.AddDate(0, 0, -days).Unix()
}
