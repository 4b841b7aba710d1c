package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SubtypeMovie = "movie"
	SubtypeTV    = "tv"
)

const (
	CinemaFinished = 0
	CinemaShowing  = 1
	CinemaComing   = 2
)

type Genre struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:30;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Country struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type Movie struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"size:128;not null;index" json:"title"`
	OriginalTitle *string        `gorm:"size:128" json:"original_title,omitempty"`
	Subtype       string         `gorm:"size:10;not null" json:"subtype"` // movie | tv
	Year          *int           `json:"year,omitempty"`
	Summary       *string        `gorm:"type:text" json:"summary,omitempty"`
	PosterURL     *string        `gorm:"type:text" json:"poster_url,omitempty"`
	SeasonsCount  *int           `json:"seasons_count,omitempty"`
	EpisodesCount *int           `json:"episodes_count,omitempty"`
	CurrentSeason *int           `json:"current_season,omitempty"`
	CinemaStatus  int            `gorm:"not null;default:0;index" json:"cinema_status"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Genres    []Genre     `gorm:"many2many:movie_genres" json:"genres,omitempty"`
	Countries []Country   `gorm:"many2many:movie_countries" json:"countries,omitempty"`
	Directors []Celebrity `gorm:"many2many:movie_directors" json:"directors,omitempty"`
	Casts     []Celebrity `gorm:"many2many:movie_casts" json:"casts,omitempty"`

	// Denormalized counters, see User. Score is the running mean over active
	// scored collect ratings; 0 when rating_count is 0.
	WishByCount    int     `gorm:"not null;default:0" json:"wish_by_count"`
	DoByCount      int     `gorm:"not null;default:0" json:"do_by_count"`
	CollectByCount int     `gorm:"not null;default:0" json:"collect_by_count"`
	RatingCount    int     `gorm:"not null;default:0" json:"rating_count"`
	Score          float64 `gorm:"not null;default:0" json:"score"`
}

func (m *Movie) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}

func (m *Movie) IsTV() bool {
	return m.Subtype == SubtypeTV
}
