package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reelist.io/reelist/internal/model"
)

type FollowRepository interface {
	// FindActive returns (nil, nil) when no active edge exists.
	FindActive(ctx context.Context, followerID, followedID uuid.UUID) (*model.Follow, error)
	Create(ctx context.Context, follow *model.Follow) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListFollowers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Follow, int64, error)
	ListFollowings(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Follow, int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) FindActive(ctx context.Context, followerID, followedID uuid.UUID) (*model.Follow, error) {
	var follow model.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		First(&follow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &follow, nil
}

func (r *followRepository) Create(ctx context.Context, follow *model.Follow) error {
	return r.db.WithContext(ctx).Create(follow).Error
}

func (r *followRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Follow{}).Error
}

func (r *followRepository) ListFollowers(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Follow, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Follow{}).Where("followed_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var follows []model.Follow
	err := query.
		Preload("Follower", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url", "signature")
		}).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&follows).Error
	return follows, total, err
}

func (r *followRepository) ListFollowings(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.Follow, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Follow{}).Where("follower_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var follows []model.Follow
	err := query.
		Preload("Followed", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url", "signature")
		}).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&follows).Error
	return follows, total, err
}
