package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
)

func TestDeriveSlotsFutureDateReturnsAllLabels(t *testing.T) {
	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)

	slots, err := DeriveSlots([]string{"09:00", "09:30", "10:00"}, tomorrow, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slots)
}

func TestDeriveSlotsSameDayFiltersElapsed(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 31, 0, 0, time.UTC)

	slots, err := DeriveSlots([]string{"09:00", "09:30", "10:00", "10:30"}, now, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00", "10:30"}, slots)
}

func TestDeriveSlotsSlotStartingExactlyNowIsExcluded(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	slots, err := DeriveSlots([]string{"09:00", "09:30"}, now, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:30"}, slots)
}

func TestDeriveSlotsAllElapsedYieldsEmpty(t *testing.T) {
	// A single 09:00 slot looked up at 09:01 the same day.
	now := time.Date(2026, 8, 29, 9, 1, 0, 0, time.UTC)

	slots, err := DeriveSlots([]string{"09:00"}, now, now)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestDeriveSlotsPastDateRejected(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)

	_, err := DeriveSlots([]string{"09:00"}, yesterday, now)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidDate))
}

func TestDeriveSlotsEmptyScheduleIsNotAnError(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	slots, err := DeriveSlots(nil, now.Add(24*time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestDeriveSlotsNormalizesMalformedInput(t *testing.T) {
	now := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)

	// Unordered, duplicated and unparsable labels are normalized rather
	// than rejected.
	slots, err := DeriveSlots([]string{"10:00", "09:00", "10:00", "not-a-time", "09:30"}, tomorrow, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, slots)
}

func TestNormalizeLabels(t *testing.T) {
	assert.Equal(t, []string{"08:00", "12:30", "23:45"},
		NormalizeLabels([]string{"23:45", "08:00", "12:30", "08:00", "25:99", ""}))
	assert.Empty(t, NormalizeLabels(nil))
}

func TestSlotStart(t *testing.T) {
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC), SlotStart(day, "09:30"))
}
