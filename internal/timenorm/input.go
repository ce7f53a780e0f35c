package timenorm

import (
	"errors"
	"fmt"
)

// ErrBadInput is returned when a schedule input has an unsupported shape.
var ErrBadInput = errors.New("timenorm: schedule input must be a time string or a list of time strings")

// ScheduleInput is either a single time string or a list of them. The two
// concrete shapes are SingleTime and TimeList; anything else is rejected at
// the boundary rather than coerced.
type ScheduleInput interface {
	times() []string
}

// SingleTime is one raw time string.
type SingleTime string

func (s SingleTime) times() []string { return []string{string(s)} }

// TimeList is a list of raw time strings.
type TimeList []string

func (l TimeList) times() []string { return l }

// Expand validates a ScheduleInput and returns the canonical entries.
// Invalid individual times are skipped; if nothing valid remains, or the
// input itself is nil, an error is returned.
func Expand(in ScheduleInput) ([]Entry, error) {
	if in == nil {
		return nil, ErrBadInput
	}
	var entries []Entry
	for _, raw := range in.times() {
		e, err := Normalize(raw)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no valid times", ErrInvalid)
	}
	return entries, nil
}
