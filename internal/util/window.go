package util

import (
	"fmt"
	"time"
)

// InWindow reports whether now falls inside the deploy window start..end,
// given as HH:MM in tz. Empty bounds mean no restriction. A window whose end
// is before its start wraps past midnight.
func InWindow(now time.Time, start, end, tz string) (bool, error) {
	if start == "" && end == "" {
		return true, nil
	}
	loc := now.Location()
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return false, fmt.Errorf("invalid timezone: %w", err)
		}
	}
	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()

	startMin, err := clockMinutes(start)
	if err != nil {
		return false, fmt.Errorf("invalid window start: %w", err)
	}
	endMin, err := clockMinutes(end)
	if err != nil {
		return false, fmt.Errorf("invalid window end: %w", err)
	}

	switch {
	case end == "":
		return minutes >= startMin, nil
	case start == "":
		return minutes <= endMin, nil
	case endMin >= startMin:
		return minutes >= startMin && minutes <= endMin, nil
	default:
		return minutes >= startMin || minutes <= endMin, nil
	}
}

func clockMinutes(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
