package models

// AvailabilityState describes a faculty member's disposition for one slot.
// PREFERRED is rewarded by the soft scorer; UNAVAILABLE is a hard exclusion.
type AvailabilityState string

const (
	AvailabilityPreferred   AvailabilityState = "PREFERRED"
	AvailabilityAvailable   AvailabilityState = "AVAILABLE"
	AvailabilityUnavailable AvailabilityState = "UNAVAILABLE"
)

// AvailabilityEntry pins a state to a time slot. Slots missing from the grid
// default to AVAILABLE.
type AvailabilityEntry struct {
	TimeSlotID string            `db:"time_slot_id" json:"time_slot_id"`
	State      AvailabilityState `db:"state" json:"state"`
}

// Faculty is a read-only snapshot of a teaching staff member. Committed hours
// are tracked inside the solver's search state, never on this struct.
type Faculty struct {
	ID             string              `db:"id" json:"id"`
	Name           string              `db:"name" json:"name"`
	Department     string              `db:"department" json:"department"`
	Expertise      []string            `json:"expertise"`
	MaxWeeklyHours int                 `db:"max_weekly_hours" json:"max_weekly_hours"`
	Availability   []AvailabilityEntry `json:"availability"`
}

// StateFor returns the availability state for a slot.
func (f Faculty) StateFor(timeSlotID string) AvailabilityState {
	for _, entry := range f.Availability {
		if entry.TimeSlotID == timeSlotID {
			return entry.State
		}
	}
	return AvailabilityAvailable
}
