package programme

import (
	"mhollis/stable-app/internal/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestProjectCalendarFields(t *testing.T) {
	entry := domain.DayEntry{
		Week:            1,
		Day:             2,
		Title:           "Canter sets",
		Category:        "conditioning",
		DurationMin:     intPtr(40),
		DurationMax:     intPtr(60),
		IntensityRpeMin: intPtr(6),
		IntensityRpeMax: intPtr(8),
		Blocks: []domain.Block{
			{Name: "Warm-up", Text: "walk and trot 15"},
			{Name: "Main", Text: "3x4min canter"},
			{Name: "Cool-down", Text: "walk 10"},
		},
		Substitution: "Steady hack if ground is hard",
	}

	fields := ProjectCalendarFields(entry)
	assert.Equal(t, "Canter sets", fields.Label)
	assert.Equal(t, "[Warm-up] walk and trot 15\n[Main] 3x4min canter\n[Cool-down] walk 10", fields.Description)
	// The calendar row carries the lower bound, not the midpoint.
	require.NotNil(t, fields.DurationMinutes)
	assert.Equal(t, 40, *fields.DurationMinutes)
	require.NotNil(t, fields.IntensityRpe)
	assert.Equal(t, 6, *fields.IntensityRpe)
	assert.Equal(t, "Substitution: Steady hack if ground is hard", fields.Notes)
}

func TestProjectRestDayWithoutOptionals(t *testing.T) {
	entry := domain.DayEntry{Week: 1, Day: 7, Title: "Rest", Category: "rest"}

	fields := ProjectCalendarFields(entry)
	assert.Equal(t, "Rest", fields.Label)
	assert.Empty(t, fields.Description)
	assert.Nil(t, fields.DurationMinutes)
	assert.Nil(t, fields.IntensityRpe)
	assert.Empty(t, fields.Notes)
}

func TestPlannedValuesUseMidpoint(t *testing.T) {
	entry := domain.DayEntry{
		DurationMin:     intPtr(40),
		DurationMax:     intPtr(60),
		IntensityRpeMin: intPtr(5),
	}

	require.NotNil(t, PlannedDuration(entry))
	assert.Equal(t, 50, *PlannedDuration(entry))

	// No max: midpoint degrades to the minimum.
	require.NotNil(t, PlannedRpe(entry))
	assert.Equal(t, 5, *PlannedRpe(entry))

	assert.Nil(t, PlannedDuration(domain.DayEntry{}))
}

func TestIsRestDay(t *testing.T) {
	assert.True(t, domain.DayEntry{Category: "rest"}.IsRestDay())
	assert.True(t, domain.DayEntry{Category: "recovery"}.IsRestDay())
	assert.True(t, domain.DayEntry{Category: "flatwork", Title: "REST"}.IsRestDay())
	assert.False(t, domain.DayEntry{Category: "flatwork", Title: "Hack"}.IsRestDay())
}

func TestScheduledDate(t *testing.T) {
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // a Monday

	assert.Equal(t, start, ScheduledDate(start, 1, 1))
	assert.Equal(t, start.AddDate(0, 0, 6), ScheduledDate(start, 1, 7))
	assert.Equal(t, start.AddDate(0, 0, 7), ScheduledDate(start, 2, 1))
	assert.Equal(t, start.AddDate(0, 0, 20), ScheduledDate(start, 3, 7))

	// A non-midnight, zoned start still anchors at UTC midnight.
	zoned := time.Date(2025, 1, 6, 15, 30, 0, 0, time.FixedZone("CET", 3600))
	assert.Equal(t, start, ScheduledDate(zoned, 1, 1))
}
