// Package dateutil parses the loosely formatted date strings that arrive on
// rate and payout columns.
package dateutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InvalidDateError reports a date string no supported layout could parse.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date value %q", e.Value)
}

// Layouts tried in order after the slashed/dashed numeric forms.
var textualLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// Parse accepts the common textual date formats seen on input columns:
// ISO dates, slashed or dotted numeric dates, and spelled-out months.
//
// For ambiguous numeric forms the field order is inferred from the values
// rather than fixed: a leading component greater than 12 is a day, otherwise
// month-first is assumed.
func Parse(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, &InvalidDateError{Value: value}
	}

	if t, ok := parseNumeric(v); ok {
		return t, nil
	}
	for _, layout := range textualLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidDateError{Value: value}
}

// parseNumeric handles d/m/y, m/d/y and y/m/d forms with "/", "-" or "."
// separators.
func parseNumeric(v string) (time.Time, bool) {
	sep := ""
	for _, s := range []string{"/", "-", "."} {
		if strings.Count(v, s) == 2 {
			sep = s
			break
		}
	}
	if sep == "" {
		return time.Time{}, false
	}
	parts := strings.Split(v, sep)
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}

	var year, month, day int
	if nums[0] > 31 {
		// Year first.
		year, month, day = nums[0], nums[1], nums[2]
	} else {
		year = nums[2]
		// Day first when the leading component cannot be a month.
		if nums[0] > 12 {
			day, month = nums[0], nums[1]
		} else {
			month, day = nums[0], nums[1]
		}
	}
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers such as February 30.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return t, true
}
