package models

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeSlot is one cell of the institution's scheduling grid: a day of week
// plus a start/end wall-clock window. The grid is finite and fixed per term.
type TimeSlot struct {
	ID    string `db:"id" json:"id"`
	Day   int    `db:"day" json:"day"` // 1 = Monday .. 7 = Sunday
	Start string `db:"start_time" json:"start_time"`
	End   string `db:"end_time" json:"end_time"`
}

// StartMinutes returns the start time as minutes since midnight, -1 on a
// malformed value.
func (t TimeSlot) StartMinutes() int {
	return clockToMinutes(t.Start)
}

// EndMinutes returns the end time as minutes since midnight, -1 on a
// malformed value.
func (t TimeSlot) EndMinutes() int {
	return clockToMinutes(t.End)
}

// DurationMinutes is the slot length in minutes.
func (t TimeSlot) DurationMinutes() int {
	start, end := t.StartMinutes(), t.EndMinutes()
	if start < 0 || end < 0 || end < start {
		return 0
	}
	return end - start
}

// Overlaps reports whether two slots collide on the weekly grid.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	if t.Day != other.Day {
		return false
	}
	return t.StartMinutes() < other.EndMinutes() && other.StartMinutes() < t.EndMinutes()
}

// Label renders a human-readable slot description such as "Monday 09:00-10:00".
func (t TimeSlot) Label() string {
	return fmt.Sprintf("%s %s-%s", DayName(t.Day), t.Start, t.End)
}

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName maps a 1-based day index to its English name.
func DayName(day int) string {
	if day < 1 || day > 7 {
		return "Unknown"
	}
	return dayNames[day]
}

func clockToMinutes(raw string) int {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return -1
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return -1
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return -1
	}
	return hours*60 + minutes
}
