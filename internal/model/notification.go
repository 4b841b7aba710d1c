package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationCategory int

const (
	NotificationFollow       NotificationCategory = 0
	NotificationRatingAction NotificationCategory = 1
)

func (c NotificationCategory) Valid() bool {
	return c == NotificationFollow || c == NotificationRatingAction
}

// Notification is deduplicated by (receiver, actor, category, rating_id):
// repeating the same action never produces a second row, and undoing the
// action retracts the row.
type Notification struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	ReceiverID uuid.UUID            `gorm:"type:uuid;not null;index" json:"receiver_id"`
	ActorID    uuid.UUID            `gorm:"type:uuid;not null" json:"actor_id"`
	Category   NotificationCategory `gorm:"not null" json:"category"`
	RatingID   *uuid.UUID           `gorm:"type:uuid" json:"rating_id,omitempty"`
	IsRead     bool                 `gorm:"default:false" json:"is_read"`
	CreatedAt  time.Time            `gorm:"autoCreateTime" json:"created_at"`

	Receiver *User `gorm:"foreignKey:ReceiverID" json:"-"`
	Actor    *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID, err = uuid.NewV7()
	}
	return
}
