package scheduling

import (
	"sort"
	"time"

	"github.com/jwalitptl/clinic-api/internal/model"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

// SlotLayout is the time-of-day format of a schedule label.
const SlotLayout = "15:04"

// DeriveSlots converts a doctor's recurring schedule labels into the
// bookable slots for date. Labels are normalized first: unparsable ones
// are dropped, duplicates collapsed, the rest sorted by time of day. For
// the current calendar day (per now), slots whose start has already
// elapsed are excluded; future days return the full normalized set. An
// empty label set means the doctor is unavailable, not an error.
//
// Pure function: the clock is an explicit argument so tests need no
// global state.
func DeriveSlots(scheduleLabels []string, date time.Time, now time.Time) ([]string, error) {
	day := model.DateOnly(date)
	today := model.DateOnly(now)

	if day.Before(today) {
		return nil, apperrors.InvalidDate("appointment date is in the past")
	}

	labels := NormalizeLabels(scheduleLabels)
	if day.After(today) {
		return labels, nil
	}

	out := make([]string, 0, len(labels))
	for _, label := range labels {
		if SlotStart(day, label).After(now.UTC()) {
			out = append(out, label)
		}
	}
	return out, nil
}

// NormalizeLabels drops labels that do not parse as HH:MM, de-duplicates
// the rest and sorts them ascending by time of day.
func NormalizeLabels(scheduleLabels []string) []string {
	seen := make(map[string]struct{}, len(scheduleLabels))
	out := make([]string, 0, len(scheduleLabels))
	for _, label := range scheduleLabels {
		if _, err := time.Parse(SlotLayout, label); err != nil {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// SlotStart resolves a label to its concrete start instant on day (UTC).
func SlotStart(day time.Time, label string) time.Time {
	t, err := time.Parse(SlotLayout, label)
	if err != nil {
		return day
	}
	return model.DateOnly(day).
		Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
