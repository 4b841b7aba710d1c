package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission names checked by the auth middleware. Which role carries which
// permission is seeded in bootstrap.
const (
	PermFollow       = "FOLLOW"
	PermCollect      = "COLLECT"
	PermComment      = "COMMENT"
	PermUpload       = "UPLOAD"
	PermModerate     = "MODERATE"
	PermAdminister   = "ADMINISTER"
	PermHandleReport = "HANDLE_REPORT"
)

const (
	RoleLocked        = "Locked"
	RoleUser          = "User"
	RoleModerator     = "Moderator"
	RoleAdministrator = "Administrator"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Permissions string    `gorm:"type:text" json:"permissions"` // comma separated
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *Role) PermissionList() []string {
	if r.Permissions == "" {
		return nil
	}
	return strings.Split(r.Permissions, ",")
}

func (r *Role) HasPermission(name string) bool {
	perms := r.PermissionList()
	for _, p := range perms {
		if p == name {
			return true
		}
	}
	return false
}

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string         `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email          string         `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"size:255;not null" json:"-"`
	Signature      *string        `gorm:"type:text" json:"signature,omitempty"`
	AvatarURL      *string        `gorm:"type:text" json:"avatar_url,omitempty"`
	EmailConfirmed bool           `gorm:"default:false" json:"email_confirmed"`
	RoleID         *uint          `json:"role_id"`
	Role           Role           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	LastLoginAt    *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Denormalized counters. Mutated only inside rating/follow lifecycle
	// transactions, never set directly by handlers.
	WishCount       int `gorm:"not null;default:0" json:"wish_count"`
	DoCount         int `gorm:"not null;default:0" json:"do_count"`
	CollectCount    int `gorm:"not null;default:0" json:"collect_count"`
	FollowersCount  int `gorm:"not null;default:0" json:"followers_count"`
	FollowingsCount int `gorm:"not null;default:0" json:"followings_count"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}

func (u *User) IsLocked() bool {
	return u.Role.Name == RoleLocked
}
