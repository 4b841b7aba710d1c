package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
)

type NotificationService interface {
	// CreateOne inserts a notification unless an identical (receiver, actor,
	// category, rating) one already exists; returns nil in that case. The
	// repos argument lets the caller run the insert inside its own
	// transaction so fan-out stays symmetric with the triggering action.
	CreateOne(ctx context.Context, repos *repository.Registry, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (*model.Notification, error)
	// Retract deletes the matching notification; reports whether one existed.
	Retract(ctx context.Context, repos *repository.Registry, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (bool, error)

	// Publish pushes a committed notification to the receiver's live
	// channel. Best-effort, call after the transaction commits.
	Publish(ctx context.Context, notification *model.Notification)

	List(ctx context.Context, receiverID uuid.UUID, category *model.NotificationCategory, page, perPage int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, receiverID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, receiverID uuid.UUID) error
	UnreadCount(ctx context.Context, receiverID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo repository.NotificationRepository
	rdb  *redis.Client
}

func NewNotificationService(repo repository.NotificationRepository, rdb *redis.Client) NotificationService {
	return &notificationService{repo: repo, rdb: rdb}
}

// NotificationChannel is the per-user redis pub/sub channel streamed over the
// websocket endpoint.
func NotificationChannel(userID string) string {
	return fmt.Sprintf("user_notifications:%s", userID)
}

func (s *notificationService) CreateOne(ctx context.Context, repos *repository.Registry, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (*model.Notification, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("invalid notification category: %d", category)
	}

	existing, err := repos.Notifications.FindByTuple(ctx, receiverID, actorID, category, ratingID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	notification := &model.Notification{
		ReceiverID: receiverID,
		ActorID:    actorID,
		Category:   category,
		RatingID:   ratingID,
	}
	if err := repos.Notifications.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

func (s *notificationService) Retract(ctx context.Context, repos *repository.Registry, receiverID, actorID uuid.UUID, category model.NotificationCategory, ratingID *uuid.UUID) (bool, error) {
	return repos.Notifications.DeleteByTuple(ctx, receiverID, actorID, category, ratingID)
}

func (s *notificationService) Publish(ctx context.Context, notification *model.Notification) {
	if s.rdb == nil || notification == nil {
		return
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		log.Printf("notification publish: marshal failed: %v", err)
		return
	}

	channel := NotificationChannel(notification.ReceiverID.String())
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		log.Printf("notification publish: %v", err)
	}
}

func (s *notificationService) List(ctx context.Context, receiverID uuid.UUID, category *model.NotificationCategory, page, perPage int) ([]model.Notification, int64, error) {
	offset := (page - 1) * perPage
	return s.repo.ListByReceiver(ctx, receiverID, category, offset, perPage)
}

func (s *notificationService) MarkRead(ctx context.Context, receiverID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, receiverID)
}

func (s *notificationService) MarkAllRead(ctx context.Context, receiverID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, receiverID)
}

func (s *notificationService) UnreadCount(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, receiverID)
}
