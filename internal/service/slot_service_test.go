package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-exam-scheduler/pkg/errors"
)

func twoDayCalendar() models.Calendar {
	return models.Calendar{
		ExamDates: map[string]string{
			"제1일": "2026-07-01",
			"제2일": "2026-07-02",
		},
		Periods: map[int]map[int]models.PeriodSpec{
			1: {
				1: {StartTime: "09:00", EndTime: "10:20", Duration: float64(80)},
				2: {StartTime: "10:40", EndTime: "11:30", Duration: float64(50)},
			},
			2: {
				1: {StartTime: "09:00", EndTime: "10:20", Duration: float64(80)},
				2: {StartTime: "10:40", EndTime: "11:30", Duration: float64(50)},
			},
		},
	}
}

func TestSlotServiceBuildSlots(t *testing.T) {
	plan, err := NewSlotService(nil).BuildSlots(twoDayCalendar())
	require.NoError(t, err)

	assert.Equal(t, []string{"제1일1교시", "제1일2교시", "제2일1교시", "제2일2교시"}, plan.Slots)
	assert.Equal(t, []string{"제1일", "제2일"}, plan.Days)
	assert.Equal(t, "제1일", plan.DayOf["제1일2교시"])
	assert.Equal(t, 80, plan.Limit["제2일1교시"])
	assert.Equal(t, 50, plan.Limit["제1일2교시"])
}

func TestSlotServiceSkipsTombstonedPeriods(t *testing.T) {
	cal := twoDayCalendar()
	cal.Periods[1][2] = models.PeriodSpec{Deleted: true}

	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	assert.Equal(t, []string{"제1일1교시", "제2일1교시", "제2일2교시"}, plan.Slots)
}

func TestSlotServiceDropsWhollyTombstonedDay(t *testing.T) {
	cal := twoDayCalendar()
	cal.Periods[2] = map[int]models.PeriodSpec{
		1: {Deleted: true},
		2: {Deleted: true},
	}

	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	assert.Equal(t, []string{"제1일"}, plan.Days)
	assert.Equal(t, []string{"제1일1교시", "제1일2교시"}, plan.Slots)
}

func TestSlotServiceDayWithoutDateUsesPeriodTable(t *testing.T) {
	cal := twoDayCalendar()
	cal.ExamDates["제2일"] = ""

	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	assert.Contains(t, plan.Days, "제2일")
}

func TestSlotServiceNanDateTreatedAsEmpty(t *testing.T) {
	cal := twoDayCalendar()
	cal.ExamDates["제2일"] = "nan"
	delete(cal.Periods, 2)

	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	assert.Equal(t, []string{"제1일"}, plan.Days)
}

func TestSlotServiceFallsBackToPeriodKeys(t *testing.T) {
	cal := twoDayCalendar()
	cal.ExamDates = map[string]string{}

	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	assert.Equal(t, []string{"제1일", "제2일"}, plan.Days)
}

func TestSlotServiceEmptyCalendarFails(t *testing.T) {
	_, err := NewSlotService(nil).BuildSlots(models.Calendar{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingCalendar))
}

func TestSlotServiceAllTombstonedFails(t *testing.T) {
	cal := models.Calendar{
		ExamDates: map[string]string{"제1일": ""},
		Periods: map[int]map[int]models.PeriodSpec{
			1: {1: {Deleted: true}},
		},
	}
	_, err := NewSlotService(nil).BuildSlots(cal)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingCalendar))
}

func TestSlotServiceBorrowsPeriodsFromSiblingDays(t *testing.T) {
	cal := twoDayCalendar()
	cal.Periods[2] = map[int]models.PeriodSpec{}

	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	assert.Contains(t, plan.Slots, "제2일1교시")
	assert.Contains(t, plan.Slots, "제2일2교시")
	// Borrowed periods take their duration from the sibling day.
	assert.Equal(t, 80, plan.Limit["제2일1교시"])
}

func TestSlotServiceDurationMeanRoundsHalfToEven(t *testing.T) {
	cal := models.Calendar{
		ExamDates: map[string]string{"제1일": "d1", "제2일": "d2", "제3일": "d3"},
		Periods: map[int]map[int]models.PeriodSpec{
			1: {1: {Duration: "oops"}},
			2: {1: {Duration: float64(45)}},
			3: {1: {Duration: float64(50)}},
		},
	}
	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	// mean of 45 and 50 is 47.5, banker's rounding lands on 48
	assert.Equal(t, 48, plan.Limit["제1일1교시"])
	assert.Equal(t, 45, plan.Limit["제2일1교시"])
}

func TestSlotServiceDurationWithoutSiblingsFails(t *testing.T) {
	cal := models.Calendar{
		ExamDates: map[string]string{"제1일": "d1"},
		Periods: map[int]map[int]models.PeriodSpec{
			1: {1: {StartTime: "09:00"}},
		},
	}
	_, err := NewSlotService(nil).BuildSlots(cal)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingDuration))
}

func TestSlotServiceNumericStringDuration(t *testing.T) {
	cal := models.Calendar{
		ExamDates: map[string]string{"제1일": "d1"},
		Periods: map[int]map[int]models.PeriodSpec{
			1: {1: {Duration: "70"}},
		},
	}
	plan, err := NewSlotService(nil).BuildSlots(cal)
	require.NoError(t, err)
	assert.Equal(t, 70, plan.Limit["제1일1교시"])
}
