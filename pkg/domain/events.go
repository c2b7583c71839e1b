package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurnStart   EventType = "turn_start"
	EventTurnEnd     EventType = "turn_end"
	EventDialogBegin EventType = "dialog_begin"
	EventDialogEnd   EventType = "dialog_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp      time.Time `json:"timestamp"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
}

// TurnEvent marks the start or end of a routed turn.
type TurnEvent struct {
	EventBase
	RouterID string        `json:"router_id"`
	Began    bool          `json:"began,omitempty"` // The router itself was started this turn
	Status   TurnStatus    `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// DialogEvent represents a dialog being pushed on or popped off a stack.
type DialogEvent struct {
	EventBase
	DialogID string    `json:"dialog_id"`
	Depth    int       `json:"depth"`
	Reason   EndReason `json:"reason,omitempty"`
}

// LifecycleHooks defines callbacks for runtime observability.
type LifecycleHooks struct {
	OnTurnStart   func(context.Context, *TurnEvent)
	OnTurnEnd     func(context.Context, *TurnEvent)
	OnDialogBegin func(context.Context, *DialogEvent)
	OnDialogEnd   func(context.Context, *DialogEvent)
}
