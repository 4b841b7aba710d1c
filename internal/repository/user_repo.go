package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/pkg/apperror"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Save(ctx context.Context, user *model.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetRole(ctx context.Context, id uuid.UUID, roleID uint) error
	SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error
	SetEmailConfirmed(ctx context.Context, id uuid.UUID) error
	FindRoleByName(ctx context.Context, name string) (*model.Role, error)

	// LockForUpdate loads the user row under FOR UPDATE so concurrent
	// rating/follow operations on the same user serialize.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error)
	AddCategoryCount(ctx context.Context, id uuid.UUID, category model.RatingCategory, delta int) error
	AddFollowersCount(ctx context.Context, id uuid.UUID, delta int) error
	AddFollowingsCount(ctx context.Context, id uuid.UUID, delta int) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Role").Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Role").Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func (r *userRepository) SetRole(ctx context.Context, id uuid.UUID, roleID uint) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("role_id", roleID).Error
}

func (r *userRepository) SetAvatarURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("avatar_url", url).Error
}

func (r *userRepository) SetEmailConfirmed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("email_confirmed", true).Error
}

func (r *userRepository) FindRoleByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &role, nil
}

func (r *userRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &user, nil
}

func (r *userRepository) AddCategoryCount(ctx context.Context, id uuid.UUID, category model.RatingCategory, delta int) error {
	column := userCategoryColumn(category)
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func (r *userRepository) AddFollowersCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("followers_count", gorm.Expr("followers_count + ?", delta)).Error
}

func (r *userRepository) AddFollowingsCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("followings_count", gorm.Expr("followings_count + ?", delta)).Error
}

func userCategoryColumn(category model.RatingCategory) string {
	switch category {
	case model.CategoryWish:
		return "wish_count"
	case model.CategoryDo:
		return "do_count"
	default:
		return "collect_count"
	}
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	return err
}
