package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reelist.io/reelist/internal/model"
)

type NotificationRepository interface {
	// FindByTuple returns (nil, nil) when no notification matches the
	// (receiver, actor, category, rating) tuple.
	FindByTuple(ctx context.Context, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (*model.Notification, error)
	Create(ctx context.Context, notification *model.Notification) error
	DeleteByTuple(ctx context.Context, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (bool, error)
	ListByReceiver(ctx context.Context, receiverID uuid.UUID, category *model.NotificationCategory, offset, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, receiverID uuid.UUID) error
	MarkAllRead(ctx context.Context, receiverID uuid.UUID) error
	CountUnread(ctx context.Context, receiverID uuid.UUID) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) tupleQuery(ctx context.Context, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) *gorm.DB {
	query := r.db.WithContext(ctx).
		Where("receiver_id = ? AND actor_id = ? AND category = ?", receiverID, actorID, category)
	if ratingID != nil {
		query = query.Where("rating_id = ?", *ratingID)
	} else {
		query = query.Where("rating_id IS NULL")
	}
	return query
}

func (r *notificationRepository) FindByTuple(ctx context.Context, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (*model.Notification, error) {
	var notification model.Notification
	err := r.tupleQuery(ctx, receiverID, actorID, category, ratingID).First(&notification).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) DeleteByTuple(ctx context.Context, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (bool, error) {
	result := r.tupleQuery(ctx, receiverID, actorID, category, ratingID).Delete(&model.Notification{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *notificationRepository) ListByReceiver(ctx context.Context, receiverID uuid.UUID, category *model.NotificationCategory, offset, limit int) ([]model.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Notification{}).Where("receiver_id = ?", receiverID)
	if category != nil {
		query = query.Where("category = ?", *category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []model.Notification
	err := query.
		Preload("Actor", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, receiverID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND receiver_id = ?", id, receiverID).
		Update("is_read", true).Error
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, receiverID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Update("is_read", true).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&count).Error
	return count, err
}
