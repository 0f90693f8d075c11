package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeNewOrder         NotificationType = "new_order"
	NotificationTypeOrderUpdate      NotificationType = "order_update"
	NotificationTypePaymentSuccess   NotificationType = "payment_success"
	NotificationTypePaymentFailed    NotificationType = "payment_failed"
	NotificationTypePayout           NotificationType = "payout"
	NotificationTypeDeliveryAssigned NotificationType = "delivery_assigned"
	NotificationTypeGeneral          NotificationType = "general"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewOrder,
	NotificationTypeOrderUpdate,
	NotificationTypePaymentSuccess,
	NotificationTypePaymentFailed,
	NotificationTypePayout,
	NotificationTypeDeliveryAssigned,
	NotificationTypeGeneral,
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
