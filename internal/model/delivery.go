package model

import "time"

// DeliveryStatus is the recorded result of one send attempt sequence.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// Delivery is one row of the delivery log. Failed rows act as a dead-letter marker for sends
// that exhausted their retries; the subscription cursor was not advanced for them.
type Delivery struct {
	ID             string         `json:"id"`
	SubscriptionID string         `json:"subscription_id"`
	Status         DeliveryStatus `json:"status"`
	Attempts       int            `json:"attempts"`
	PageStart      int            `json:"page_start"`
	PageEnd        int            `json:"page_end"`
	Error          string         `json:"error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
