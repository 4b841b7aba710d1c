package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Follow is a directed edge: follower -> followed. No self loops, at most one
// active edge per ordered pair.
type Follow struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FollowerID uuid.UUID      `gorm:"type:uuid;not null;index:idx_follows_pair,priority:1" json:"follower_id"`
	FollowedID uuid.UUID      `gorm:"type:uuid;not null;index:idx_follows_pair,priority:2;index" json:"followed_id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Follower *User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followed *User `gorm:"foreignKey:FollowedID" json:"followed,omitempty"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID, err = uuid.NewV7()
	}
	return
}
