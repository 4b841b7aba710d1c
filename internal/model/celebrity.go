package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Celebrity struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:128;not null;index" json:"name"`
	NameEN    *string        `gorm:"size:128" json:"name_en,omitempty"`
	Gender    *string        `gorm:"size:10" json:"gender,omitempty"`
	AvatarURL *string        `gorm:"type:text" json:"avatar_url,omitempty"`
	BornPlace *string        `gorm:"size:64" json:"born_place,omitempty"`
	Aka       *string        `gorm:"type:text" json:"aka,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Celebrity) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}
