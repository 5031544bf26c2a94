package service

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-scheduler/internal/models"
	appErrors "github.com/noah-isme/sma-exam-scheduler/pkg/errors"
)

// SlotPlan is the canonical slot universe of one run: the ordered slot list,
// the slot→day-key mapping and the per-slot duration limit in minutes.
type SlotPlan struct {
	Slots []string
	Days  []string
	DayOf map[string]string
	Limit map[string]int
}

// SlotsOfDay returns the slots belonging to a day key, in emission order.
func (p *SlotPlan) SlotsOfDay(day string) []string {
	var slots []string
	for _, slot := range p.Slots {
		if p.DayOf[slot] == day {
			slots = append(slots, slot)
		}
	}
	return slots
}

// SlotService derives the slot universe from the editable exam calendar.
type SlotService struct {
	logger *zap.Logger
}

// NewSlotService wires the slot builder.
func NewSlotService(logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{logger: logger}
}

// BuildSlots resolves the active days and periods of the calendar into the
// ordered slot list. Day selection prefers days with a real date string,
// falling back to the period table and finally to the first two labelled
// days; wholly tombstoned days are dropped throughout.
func (s *SlotService) BuildSlots(cal models.Calendar) (*SlotPlan, error) {
	dayLabels := s.selectDays(cal)
	if len(dayLabels) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingCalendar,
			"시험날짜 정보가 없습니다: no usable exam days in the calendar")
	}

	plan := &SlotPlan{
		DayOf: make(map[string]string),
		Limit: make(map[string]int),
	}

	for _, label := range dayLabels {
		periods, err := s.periodsForDay(cal, label)
		if err != nil {
			return nil, err
		}
		plan.Days = append(plan.Days, label)
		for _, period := range periods {
			slot := models.SlotID(label, period)
			plan.Slots = append(plan.Slots, slot)
			plan.DayOf[slot] = label

			limit, err := s.resolveDuration(cal, label, period)
			if err != nil {
				return nil, err
			}
			plan.Limit[slot] = limit
		}
	}

	if len(plan.Slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrMissingCalendar,
			"no exam slots could be derived from the calendar")
	}

	s.logger.Debug("slot plan built",
		zap.Int("days", len(plan.Days)),
		zap.Int("slots", len(plan.Slots)))
	return plan, nil
}

// selectDays implements the four-step day selection with fallbacks.
func (s *SlotService) selectDays(cal models.Calendar) []string {
	var used []string
	for _, label := range orderedDayLabels(cal.ExamDates) {
		date := cal.ExamDates[label]
		if date != "" && date != "nan" && date != "NaN" {
			used = append(used, label)
			continue
		}
		if num, ok := models.DayNumber(label); ok {
			if periods, exists := cal.Periods[num]; exists && !models.AllDeleted(periods) {
				used = append(used, label)
			}
		}
	}

	if len(used) == 0 && len(cal.Periods) > 0 {
		for _, num := range sortedDayNumbers(cal.Periods) {
			if !models.AllDeleted(cal.Periods[num]) {
				used = append(used, models.DayLabel(num))
			}
		}
	}

	if len(used) == 0 {
		labels := orderedDayLabels(cal.ExamDates)
		if len(labels) > 2 {
			labels = labels[:2]
		}
		used = labels
	}

	// Final filter: days whose period table entry is gone or wholly
	// tombstoned are treated as fully removed. Labels without a parseable
	// day number pass through as opaque day keys.
	var final []string
	for _, label := range used {
		num, ok := models.DayNumber(label)
		if !ok {
			final = append(final, label)
			continue
		}
		periods, exists := cal.Periods[num]
		if exists && !models.AllDeleted(periods) {
			final = append(final, label)
		}
	}
	return final
}

// periodsForDay returns the active period numbers of a day, ascending. A day
// without its own periods borrows the union of active periods from the other
// days.
func (s *SlotService) periodsForDay(cal models.Calendar, label string) ([]int, error) {
	num, _ := models.DayNumber(label)

	var active []int
	for period, spec := range cal.Periods[num] {
		if !spec.Deleted {
			active = append(active, period)
		}
	}
	sort.Ints(active)
	if len(active) > 0 {
		return active, nil
	}

	borrowed := make(map[int]bool)
	for otherDay, periods := range cal.Periods {
		if otherDay == num {
			continue
		}
		for period, spec := range periods {
			if !spec.Deleted {
				borrowed[period] = true
			}
		}
	}
	if len(borrowed) > 0 {
		for period := range borrowed {
			active = append(active, period)
		}
		sort.Ints(active)
		s.logger.Debug("day has no own periods, borrowing siblings",
			zap.String("day", label), zap.Ints("periods", active))
		return active, nil
	}

	return nil, appErrors.Clone(appErrors.ErrMissingPeriods,
		fmt.Sprintf("'%s'의 교시 정보가 없습니다: day has no usable periods", label))
}

// resolveDuration looks up the slot's duration limit, substituting the
// rounded mean of the same period on other days when the own value is
// tombstoned, absent or non-numeric.
func (s *SlotService) resolveDuration(cal models.Calendar, label string, period int) (int, error) {
	num, _ := models.DayNumber(label)
	if spec, ok := cal.Periods[num][period]; ok {
		if minutes, ok := spec.Minutes(); ok {
			return minutes, nil
		}
	}
	return s.siblingDuration(cal, num, period)
}

func (s *SlotService) siblingDuration(cal models.Calendar, dayNum, period int) (int, error) {
	var durations []int
	for otherDay, periods := range cal.Periods {
		if otherDay == dayNum {
			continue
		}
		if spec, ok := periods[period]; ok {
			if minutes, ok := spec.Minutes(); ok {
				durations = append(durations, minutes)
			}
		}
	}
	if len(durations) == 0 {
		return 0, appErrors.Clone(appErrors.ErrMissingDuration,
			fmt.Sprintf("%d교시의 시간 정보가 없습니다: no duration data for period %d", period, period))
	}

	sum := 0
	for _, d := range durations {
		sum += d
	}
	return int(math.RoundToEven(float64(sum) / float64(len(durations)))), nil
}

// orderedDayLabels sorts the calendar's day labels by their embedded day
// number; labels without one sort last, lexicographically.
func orderedDayLabels(dates map[string]string) []string {
	labels := make([]string, 0, len(dates))
	for label := range dates {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		ni, oki := models.DayNumber(labels[i])
		nj, okj := models.DayNumber(labels[j])
		switch {
		case oki && okj:
			if ni != nj {
				return ni < nj
			}
			return labels[i] < labels[j]
		case oki:
			return true
		case okj:
			return false
		default:
			return labels[i] < labels[j]
		}
	})
	return labels
}

func sortedDayNumbers(periods map[int]map[int]models.PeriodSpec) []int {
	nums := make([]int, 0, len(periods))
	for num := range periods {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}
