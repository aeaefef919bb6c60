package enums

import "fmt"

// AttendanceStatus records how a worker showed up for a completed shift.
type AttendanceStatus string

const (
	AttendanceStatusAttended AttendanceStatus = "attended"
	AttendanceStatusLate     AttendanceStatus = "late"
	AttendanceStatusNoShow   AttendanceStatus = "no_show"
)

var validAttendanceStatuses = []AttendanceStatus{
	AttendanceStatusAttended,
	AttendanceStatusLate,
	AttendanceStatusNoShow,
}

// String implements fmt.Stringer.
func (a AttendanceStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttendanceStatus.
func (a AttendanceStatus) IsValid() bool {
	for _, candidate := range validAttendanceStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttendanceStatus converts raw input into an AttendanceStatus.
func ParseAttendanceStatus(value string) (AttendanceStatus, error) {
	for _, candidate := range validAttendanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attendance status %q", value)
}
