package service

import (
	"bytes"
	"context"

	"github.com/google/uuid"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
)

// FollowService maintains the directed follow graph and the two counters that
// summarize it on each user row. Follow and unfollow report whether the graph
// actually changed; self-follows and duplicates are no-ops rather than errors.
type FollowService interface {
	Follow(ctx context.Context, followerID, followedID uuid.UUID) (bool, error)
	Unfollow(ctx context.Context, followerID, followedID uuid.UUID) (bool, error)
	IsFollowing(ctx context.Context, followerID, followedID uuid.UUID) (bool, error)
	// ListFollowers and ListFollowings return user summaries, newest edge
	// first.
	ListFollowers(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.User, int64, error)
	ListFollowings(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.User, int64, error)
}

type followService struct {
	tx            repository.TxManager
	repos         *repository.Registry
	notifications NotificationService
}

func NewFollowService(tx repository.TxManager, repos *repository.Registry, notifications NotificationService) FollowService {
	return &followService{tx: tx, repos: repos, notifications: notifications}
}

// lockUserPair locks both user rows in a deterministic order so two
// overlapping follow operations on the same pair cannot deadlock.
func lockUserPair(ctx context.Context, r *repository.Registry, a, b uuid.UUID) error {
	first, second := a, b
	if bytes.Compare(b[:], a[:]) < 0 {
		first, second = b, a
	}
	if _, err := r.Users.LockForUpdate(ctx, first); err != nil {
		return err
	}
	_, err := r.Users.LockForUpdate(ctx, second)
	return err
}

func (s *followService) Follow(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	if followerID == followedID {
		return false, nil
	}

	var (
		followed bool
		created  *model.Notification
	)

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		if err := lockUserPair(ctx, r, followerID, followedID); err != nil {
			return err
		}

		existing, err := r.Follows.FindActive(ctx, followerID, followedID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		if err := r.Follows.Create(ctx, &model.Follow{FollowerID: followerID, FollowedID: followedID}); err != nil {
			return err
		}
		if err := r.Users.AddFollowingsCount(ctx, followerID, 1); err != nil {
			return err
		}
		if err := r.Users.AddFollowersCount(ctx, followedID, 1); err != nil {
			return err
		}

		created, err = s.notifications.CreateOne(ctx, r, followedID, followerID, model.NotificationFollow, nil)
		if err != nil {
			return err
		}

		followed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.notifications.Publish(ctx, created)
	return followed, nil
}

func (s *followService) Unfollow(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	if followerID == followedID {
		return false, nil
	}

	var unfollowed bool

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		if err := lockUserPair(ctx, r, followerID, followedID); err != nil {
			return err
		}

		existing, err := r.Follows.FindActive(ctx, followerID, followedID)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}

		if err := r.Follows.SoftDelete(ctx, existing.ID); err != nil {
			return err
		}
		if err := r.Users.AddFollowingsCount(ctx, followerID, -1); err != nil {
			return err
		}
		if err := r.Users.AddFollowersCount(ctx, followedID, -1); err != nil {
			return err
		}
		if _, err := s.notifications.Retract(ctx, r, followedID, followerID, model.NotificationFollow, nil); err != nil {
			return err
		}

		unfollowed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return unfollowed, nil
}

func (s *followService) IsFollowing(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	if followerID == followedID {
		return false, nil
	}
	follow, err := s.repos.Follows.FindActive(ctx, followerID, followedID)
	if err != nil {
		return false, err
	}
	return follow != nil, nil
}

func (s *followService) ListFollowers(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.User, int64, error) {
	follows, total, err := s.repos.Follows.ListFollowers(ctx, userID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}

	users := make([]model.User, 0, len(follows))
	for _, f := range follows {
		if f.Follower != nil {
			users = append(users, *f.Follower)
		}
	}
	return users, total, nil
}

func (s *followService) ListFollowings(ctx context.Context, userID uuid.UUID, page, perPage int) ([]model.User, int64, error) {
	follows, total, err := s.repos.Follows.ListFollowings(ctx, userID, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, err
	}

	users := make([]model.User, 0, len(follows))
	for _, f := range follows {
		if f.Followed != nil {
			users = append(users, *f.Followed)
		}
	}
	return users, total, nil
}
