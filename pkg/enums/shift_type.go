package enums

import "fmt"

// ShiftType categorizes a shift for rostering and pay purposes.
type ShiftType string

const (
	ShiftTypeRegular     ShiftType = "regular"
	ShiftTypeMorning     ShiftType = "morning_shift"
	ShiftTypeDay         ShiftType = "day_shift"
	ShiftTypeNight       ShiftType = "night_shift"
	ShiftTypeBankHoliday ShiftType = "bank_holiday"
	ShiftTypeEmergency   ShiftType = "emergency_shift"
	ShiftTypeOvertime    ShiftType = "overtime"
)

var validShiftTypes = []ShiftType{
	ShiftTypeRegular,
	ShiftTypeMorning,
	ShiftTypeDay,
	ShiftTypeNight,
	ShiftTypeBankHoliday,
	ShiftTypeEmergency,
	ShiftTypeOvertime,
}

// String implements fmt.Stringer.
func (s ShiftType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShiftType.
func (s ShiftType) IsValid() bool {
	for _, candidate := range validShiftTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShiftType converts raw input into a ShiftType.
func ParseShiftType(value string) (ShiftType, error) {
	for _, candidate := range validShiftTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shift type %q", value)
}
