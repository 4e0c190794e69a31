// Package domain defines the event types flowing through the event bus.
package domain

import "time"

// EventType identifies a class of event.
type EventType string

const (
	// Timer lifecycle events, published by the state machine.
	TimerStarted  EventType = "TimerStarted"
	TimerPaused   EventType = "TimerPaused"
	TimerReset    EventType = "TimerReset"
	TimerAdjusted EventType = "TimerAdjusted"
	TimerSet      EventType = "TimerSet"
	// TimerExpired fires when a running countdown reaches zero.
	TimerExpired EventType = "TimerExpired"

	// Persistence events.
	SnapshotSaveFailed EventType = "SnapshotSaveFailed"

	// Push-channel events.
	ClientConnected    EventType = "ClientConnected"
	ClientDisconnected EventType = "ClientDisconnected"

	// Notification delivery outcomes.
	NotificationSent   EventType = "NotificationSent"
	NotificationFailed EventType = "NotificationFailed"
)

// Event is a single occurrence published on the event bus.
type Event struct {
	EventType EventType              `json:"event_type"`
	EventData map[string]interface{} `json:"event_data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
