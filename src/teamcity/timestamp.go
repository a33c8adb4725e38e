package teamcity

import (
	"fmt"
	"time"
)

// TimestampLayout is TeamCity's compact date format, e.g. 20240131T154502+0300.
const TimestampLayout = "20060102T150405-0700"

// ParseTimestamp parses a TeamCity date such as finishOnAgentDate.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid TeamCity timestamp %q: %w", s, err)
	}
	return t, nil
}
