package asset

import (
	"errors"
	"fmt"
)

// ScheduleField names a field of a service due entry.
type ScheduleField string

const (
	ScheduleDueDate     ScheduleField = "due_date"
	ScheduleDescription ScheduleField = "description"
)

// LastEntryMessage is shown when removal of the only service due entry is refused.
const LastEntryMessage = "At least one service due entry is required"

var (
	ErrEntryIndex = errors.New("service due index out of range")
	ErrLastEntry  = errors.New("at least one service due entry is required")
)

// AddEntry appends an empty service due entry.
func (d *Draft) AddEntry() {
	d.ServiceSchedule = append(d.ServiceSchedule, ServiceDue{})
}

// UpdateEntry sets one field of the entry at index. No validation happens on keystroke.
func (d *Draft) UpdateEntry(index int, field ScheduleField, value string) error {
	if index < 0 || index >= len(d.ServiceSchedule) {
		return fmt.Errorf("%w: %d", ErrEntryIndex, index)
	}
	switch field {
	case ScheduleDueDate:
		d.ServiceSchedule[index].DueDate = value
	case ScheduleDescription:
		d.ServiceSchedule[index].Description = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

// RemoveEntry deletes the entry at index. The last remaining entry is never removed.
func (d *Draft) RemoveEntry(index int) error {
	if len(d.ServiceSchedule) <= 1 {
		return ErrLastEntry
	}
	if index < 0 || index >= len(d.ServiceSchedule) {
		return fmt.Errorf("%w: %d", ErrEntryIndex, index)
	}
	d.ServiceSchedule = append(d.ServiceSchedule[:index:index], d.ServiceSchedule[index+1:]...)
	return nil
}

// complete reports whether an entry has both fields filled or both empty.
func (s ServiceDue) complete() bool {
	return (s.DueDate == "") == (s.Description == "")
}
