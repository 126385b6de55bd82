package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallbackEvent is one outbox row announcing a terminal verification state.
// It lives from the terminal transition until its webhook delivery succeeds.
type CallbackEvent struct {
	ID             uuid.UUID `json:"-"`
	VerificationID uuid.UUID `json:"verification_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewCallbackEvent creates an outbox event for a verification that just
// reached a terminal state.
func NewCallbackEvent(verificationID uuid.UUID) *CallbackEvent {
	return &CallbackEvent{
		ID:             uuid.New(),
		VerificationID: verificationID,
		Timestamp:      time.Now().UTC(),
	}
}
