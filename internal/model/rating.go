package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RatingCategory is the user's relationship to a movie. A user holds at most
// one active rating per movie, in exactly one category at a time.
type RatingCategory int

const (
	CategoryWish    RatingCategory = 0 // want to watch
	CategoryDo      RatingCategory = 1 // watching now, tv only
	CategoryCollect RatingCategory = 2 // watched, may carry a score
)

func (c RatingCategory) Valid() bool {
	return c == CategoryWish || c == CategoryDo || c == CategoryCollect
}

func (c RatingCategory) String() string {
	switch c {
	case CategoryWish:
		return "wish"
	case CategoryDo:
		return "do"
	case CategoryCollect:
		return "collect"
	}
	return "unknown"
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:30;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Rating struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_ratings_user_movie,priority:1" json:"user_id"`
	MovieID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_ratings_user_movie,priority:2;index" json:"movie_id"`
	Category  RatingCategory `gorm:"not null" json:"category"`
	Score     int            `gorm:"not null;default:0" json:"score"` // 0-10, 0 means unscored
	Comment   *string        `gorm:"type:text" json:"comment,omitempty"`
	Tags      []Tag          `gorm:"many2many:rating_tags" json:"tags,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	LikeCount   int `gorm:"not null;default:0" json:"like_count"`
	ReportCount int `gorm:"not null;default:0" json:"report_count"`

	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Movie *Movie `gorm:"foreignKey:MovieID" json:"movie,omitempty"`
}

func (r *Rating) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}

type RatingLike struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_rating_likes_unique,unique,priority:1" json:"user_id"`
	RatingID  uuid.UUID `gorm:"type:uuid;not null;index:idx_rating_likes_unique,unique,priority:2" json:"rating_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (l *RatingLike) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}

type RatingReport struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_rating_reports_unique,unique,priority:1" json:"user_id"`
	RatingID  uuid.UUID `gorm:"type:uuid;not null;index:idx_rating_reports_unique,unique,priority:2" json:"rating_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *RatingReport) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID, err = uuid.NewV7()
	}
	return
}
