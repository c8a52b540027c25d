package model

import (
	"time"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ModerationEvent records a single state transition of a photo.
type ModerationEvent struct {
	ID        string    `db:"id" json:"id"`
	PhotoID   string    `db:"photo_id" json:"photoId"`
	FromState State     `db:"from_state" json:"fromState"`
	ToState   State     `db:"to_state" json:"toState"`
	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
