package repository

import (
	"context"

	"gorm.io/gorm"
)

// Registry bundles every repository bound to the same *gorm.DB handle. Inside
// TxManager.Do the handle is the transaction, so a multi-entity operation
// (rating lifecycle, follow lifecycle) either commits every paired counter
// mutation or none of them.
type Registry struct {
	Users         UserRepository
	Movies        MovieRepository
	Ratings       RatingRepository
	Follows       FollowRepository
	Notifications NotificationRepository
	Tags          TagRepository
	Celebrities   CelebrityRepository
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		Users:         NewUserRepository(db),
		Movies:        NewMovieRepository(db),
		Ratings:       NewRatingRepository(db),
		Follows:       NewFollowRepository(db),
		Notifications: NewNotificationRepository(db),
		Tags:          NewTagRepository(db),
		Celebrities:   NewCelebrityRepository(db),
	}
}

// TxManager runs a function against a transaction-bound Registry.
type TxManager interface {
	Do(ctx context.Context, fn func(r *Registry) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) Do(ctx context.Context, fn func(r *Registry) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRegistry(tx))
	})
}
