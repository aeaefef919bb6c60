package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeShiftAssigned       NotificationType = "shift_assigned"
	NotificationTypeAssignmentAccepted  NotificationType = "assignment_accepted"
	NotificationTypeAssignmentDeclined  NotificationType = "assignment_declined"
	NotificationTypeShiftCompleted      NotificationType = "shift_completed"
	NotificationTypeNoShowRecorded      NotificationType = "no_show_recorded"
	NotificationTypeAssignmentCancelled NotificationType = "assignment_cancelled"
	NotificationTypeShiftCancelled      NotificationType = "shift_cancelled"
	NotificationTypeSubscriptionUpdated NotificationType = "subscription_updated"
	NotificationTypeSystemAnnouncement  NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeShiftAssigned,
	NotificationTypeAssignmentAccepted,
	NotificationTypeAssignmentDeclined,
	NotificationTypeShiftCompleted,
	NotificationTypeNoShowRecorded,
	NotificationTypeAssignmentCancelled,
	NotificationTypeShiftCancelled,
	NotificationTypeSubscriptionUpdated,
	NotificationTypeSystemAnnouncement,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
