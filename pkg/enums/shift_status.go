package enums

import "fmt"

// ShiftStatus tracks the lifecycle of a shift itself, independent of any
// single assignment.
type ShiftStatus string

const (
	ShiftStatusPending   ShiftStatus = "pending"
	ShiftStatusOpen      ShiftStatus = "open"
	ShiftStatusFilled    ShiftStatus = "filled"
	ShiftStatusCompleted ShiftStatus = "completed"
	ShiftStatusCancelled ShiftStatus = "cancelled"
)

var validShiftStatuses = []ShiftStatus{
	ShiftStatusPending,
	ShiftStatusOpen,
	ShiftStatusFilled,
	ShiftStatusCompleted,
	ShiftStatusCancelled,
}

// String implements fmt.Stringer.
func (s ShiftStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShiftStatus.
func (s ShiftStatus) IsValid() bool {
	for _, candidate := range validShiftStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShiftStatus converts raw input into a ShiftStatus.
func ParseShiftStatus(value string) (ShiftStatus, error) {
	for _, candidate := range validShiftStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shift status %q", value)
}
