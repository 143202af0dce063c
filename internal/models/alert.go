package models

import "time"

// AlertChannel is a delivery channel for alerts.
type AlertChannel string

const (
	ChannelTelegram AlertChannel = "telegram"
	ChannelEmail    AlertChannel = "email"
	ChannelWebhook  AlertChannel = "webhook"
)

// Valid reports whether c is a supported channel.
func (c AlertChannel) Valid() bool {
	return c == ChannelTelegram || c == ChannelEmail || c == ChannelWebhook
}

// AlertStatus tracks delivery of an alert.
type AlertStatus string

const (
	AlertPending AlertStatus = "pending"
	AlertSent    AlertStatus = "sent"
	AlertFailed  AlertStatus = "failed"
)

// Alert records one notification attempt for an opportunity.
type Alert struct {
	ID            string       `json:"id" db:"id"`
	OpportunityID string       `json:"opportunity_id" db:"opportunity_id"`
	Channel       AlertChannel `json:"channel" db:"channel"`
	Recipient     string       `json:"recipient" db:"recipient"`
	Title         string       `json:"title" db:"title"`
	Message       string       `json:"message" db:"message"`
	Status        AlertStatus  `json:"status" db:"status"`
	ErrorMessage  string       `json:"error_message,omitempty" db:"error_message"`
	TotalStake    float64      `json:"total_stake" db:"total_stake"`
	SentAt        *time.Time   `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// ManualAlertRequest is the body of POST /alerts.
type ManualAlertRequest struct {
	OpportunityID string       `json:"opportunity_id" binding:"required"`
	Channel       AlertChannel `json:"channel" binding:"required"`
	Recipient     string       `json:"recipient"`
}
