// Package timenorm validates and canonicalizes the time-of-day strings used
// by scheduled refreshes. A leading '*' marks an entry as repeating (fires
// every day); without it the entry fires once and is then deleted.
package timenorm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RepeatMarker prefixes a time entry that fires daily.
const RepeatMarker = "*"

var ErrInvalid = errors.New("timenorm: invalid time")

// Entry is a validated schedule entry in canonical form.
type Entry struct {
	// Canonical is zero-padded "HH:MM" or "HH:MM:SS", matching the field
	// count of the input. Does not include the repeat marker.
	Canonical string
	Repeating bool
}

// Stored returns the string as kept in the schedule map: the canonical time,
// prefixed with the repeat marker for repeating entries.
func (e Entry) Stored() string {
	if e.Repeating {
		return RepeatMarker + e.Canonical
	}
	return e.Canonical
}

// HasSeconds reports whether the entry carries second precision.
func (e Entry) HasSeconds() bool {
	return strings.Count(e.Canonical, ":") == 2
}

// Normalize validates a raw time string and returns its canonical entry.
// Accepted forms are "H:M", "HH:MM", "H:M:S", "HH:MM:SS", optionally prefixed
// with the repeat marker. Anything else returns ErrInvalid.
func Normalize(raw string) (Entry, error) {
	s := strings.TrimSpace(raw)

	repeating := strings.HasPrefix(s, RepeatMarker)
	if repeating {
		s = strings.TrimSpace(strings.TrimPrefix(s, RepeatMarker))
	}

	if !strings.Contains(s, ":") {
		return Entry{}, fmt.Errorf("%w: %q has no colon", ErrInvalid, raw)
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Entry{}, fmt.Errorf("%w: %q has %d parts", ErrInvalid, raw, len(parts))
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %q: %v", ErrInvalid, raw, err)
		}
		nums[i] = n
	}

	limits := []int{24, 60, 60}
	for i, n := range nums {
		if n < 0 || n >= limits[i] {
			return Entry{}, fmt.Errorf("%w: %q component %d out of range", ErrInvalid, raw, i)
		}
	}

	canonical := fmt.Sprintf("%02d:%02d", nums[0], nums[1])
	if len(nums) == 3 {
		canonical += fmt.Sprintf(":%02d", nums[2])
	}
	return Entry{Canonical: canonical, Repeating: repeating}, nil
}

// Matches reports whether the stored entry fires at now. Comparison happens
// at the entry's own granularity: a minute entry matches for its whole
// minute, a seconds entry only at that exact second.
func Matches(stored string, now time.Time) bool {
	e, err := Normalize(stored)
	if err != nil {
		return false
	}
	if e.HasSeconds() {
		return now.Format("15:04:05") == e.Canonical
	}
	return now.Format("15:04") == e.Canonical
}

// IsRepeating reports whether a stored entry carries the repeat marker.
func IsRepeating(stored string) bool {
	return strings.HasPrefix(stored, RepeatMarker)
}

// PastToday reports whether a stored entry's time-of-day already passed
// today. Used for stale one-shot GC on snapshot load.
func PastToday(stored string, now time.Time) bool {
	e, err := Normalize(stored)
	if err != nil {
		return true // unparseable entries are dropped as stale
	}
	cur := now.Format("15:04:05")
	ref := e.Canonical
	if !e.HasSeconds() {
		// A minute entry is past only once its whole minute is over.
		ref += ":59"
	}
	return ref < cur
}
