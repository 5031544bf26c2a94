package models

import (
	"regexp"
	"strconv"
)

// Calendar is the editable exam-calendar description. Day labels follow the
// "제N일" convention; date strings may be empty when the operator has not
// picked a date yet. DatePeriods is keyed by day number, then period number.
type Calendar struct {
	SchoolYear string                     `json:"학년도,omitempty"`
	Semester   string                     `json:"학기,omitempty"`
	ExamType   string                     `json:"고사종류,omitempty"`
	ExamDates  map[string]string          `json:"시험날짜"`
	Periods    map[int]map[int]PeriodSpec `json:"date_periods"`
}

// PeriodSpec describes one period of one exam day. Deleted marks a tombstone:
// the operator removed the period (or the whole day, when every period of the
// day carries it). Duration is kept loosely typed because upstream editors
// have been observed writing numbers, numeric strings and nulls.
type PeriodSpec struct {
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Duration  any    `json:"duration,omitempty"`
	Deleted   bool   `json:"_deleted,omitempty"`
}

// Minutes coerces the duration field to whole minutes.
func (p PeriodSpec) Minutes() (int, bool) {
	if p.Deleted {
		return 0, false
	}
	switch d := p.Duration.(type) {
	case float64:
		return int(d), true
	case int:
		return d, true
	case int64:
		return int(d), true
	case string:
		n, err := strconv.Atoi(d)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// AllDeleted reports whether every period of a day is tombstoned. An empty
// day does not count as deleted.
func AllDeleted(periods map[int]PeriodSpec) bool {
	if len(periods) == 0 {
		return false
	}
	for _, p := range periods {
		if !p.Deleted {
			return false
		}
	}
	return true
}

var (
	dayLabelPattern = regexp.MustCompile(`제(\d+)일`)
	periodPattern   = regexp.MustCompile(`(\d+)교시`)
)

// DayNumber extracts the day number from a "제N일" label.
func DayNumber(label string) (int, bool) {
	m := dayLabelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// DayLabel renders the canonical label for a day number.
func DayLabel(dayNum int) string {
	return "제" + strconv.Itoa(dayNum) + "일"
}

// SlotID renders the canonical slot identifier for a (day, period) pair.
func SlotID(dayLabel string, period int) string {
	return dayLabel + strconv.Itoa(period) + "교시"
}

// SlotDay extracts the day label from a slot identifier. Malformed
// identifiers return ok=false.
func SlotDay(slot string) (string, bool) {
	m := dayLabelPattern.FindString(slot)
	if m == "" {
		return "", false
	}
	return m, true
}

// SlotPeriod extracts the period number from a slot identifier.
func SlotPeriod(slot string) (int, bool) {
	m := periodPattern.FindStringSubmatch(slot)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
