package model

import (
	"errors"
	"fmt"
	"slices"
)

type Shift string

const (
	First  Shift = "FIRST"
	Second Shift = "SECOND"
)

// TimeSlot is a (weekday, lesson-number) pair
type TimeSlot struct {
	Weekday uint64
	Lesson  uint64
}

// Calendar binds every shift to its ordered lesson slots and sets the weekdays lessons happen on. It is
// an input of validation and model construction, never a package constant.
type Calendar struct {
	Weekdays []uint64
	Shifts   map[Shift][]uint64
	// Weekly capacity of teachers without one of their own; zero falls back to the SECOND shift weekly slots
	DefaultTeacherCapacity uint64
}

// DefaultCalendar is the Monday to Saturday week with FIRST lessons 1-7 and SECOND lessons 8-13
func DefaultCalendar() Calendar {
	return Calendar{
		Weekdays: []uint64{1, 2, 3, 4, 5, 6},
		Shifts: map[Shift][]uint64{
			First:  {1, 2, 3, 4, 5, 6, 7},
			Second: {8, 9, 10, 11, 12, 13},
		},
		DefaultTeacherCapacity: 36,
	}
}

func (calendar Calendar) Validate() error {
	if len(calendar.Weekdays) == 0 {
		return errors.New("calendar has no weekdays")
	}
	if duplicate, ok := firstDuplicate(calendar.Weekdays); ok {
		return fmt.Errorf("calendar repeats weekday %v", duplicate)
	}
	if len(calendar.Shifts) == 0 {
		return errors.New("calendar has no shifts")
	}
	for _, shift := range calendar.ShiftNames() {
		slots := calendar.Shifts[shift]
		if len(slots) == 0 {
			return fmt.Errorf("shift %v has no lesson slots", shift)
		}
		if duplicate, ok := firstDuplicate(slots); ok {
			return fmt.Errorf("shift %v repeats lesson slot %v", shift, duplicate)
		}
	}
	return nil
}

// ShiftNames returns the calendar's shifts in a stable order
func (calendar Calendar) ShiftNames() []Shift {
	shifts := make([]Shift, 0, len(calendar.Shifts))
	for shift := range calendar.Shifts {
		shifts = append(shifts, shift)
	}
	slices.Sort(shifts)
	return shifts
}

// Slots returns the lesson slots of the shift in teaching order
func (calendar Calendar) Slots(shift Shift) []uint64 {
	return calendar.Shifts[shift]
}

func (calendar Calendar) WeeklySlots(shift Shift) uint64 {
	return uint64(len(calendar.Weekdays) * len(calendar.Shifts[shift]))
}

func (calendar Calendar) Contains(shift Shift, slot TimeSlot) bool {
	return slices.Contains(calendar.Weekdays, slot.Weekday) && slices.Contains(calendar.Shifts[shift], slot.Lesson)
}

// TeacherCapacity is the weekly capacity of a teacher without an explicit maximum
func (calendar Calendar) TeacherCapacity() uint64 {
	if calendar.DefaultTeacherCapacity > 0 {
		return calendar.DefaultTeacherCapacity
	}
	return calendar.WeeklySlots(Second)
}

func firstDuplicate(values []uint64) (uint64, bool) {
	seen := make(map[uint64]bool, len(values))
	for _, value := range values {
		if seen[value] {
			return value, true
		}
		seen[value] = true
	}
	return 0, false
}
