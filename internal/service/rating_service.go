package service

import (
	"context"

	"github.com/google/uuid"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/pkg/apperror"
)

// RatingService owns the single-active-rating-per-(user,movie) invariant and
// keeps every denormalized counter equal to the relationship rows it
// summarizes. Each mutating operation runs in one transaction; no call site
// can touch a rating row without the paired counter updates.
type RatingService interface {
	// Rate creates the user's rating on a movie, or updates it in place when
	// one already exists (a later interaction replaces category/score rather
	// than erroring).
	Rate(ctx context.Context, userID, movieID uuid.UUID, category model.RatingCategory, score int, comment *string, tags []string) (*model.Rating, error)
	// DeleteRating reverses all counter effects of the user's active rating.
	// Returns false when there is none.
	DeleteRating(ctx context.Context, userID, movieID uuid.UUID) (bool, error)
	// DeleteRatingByID removes a rating addressed directly, for moderation.
	DeleteRatingByID(ctx context.Context, ratingID uuid.UUID) (bool, error)
	Get(ctx context.Context, ratingID uuid.UUID) (*model.Rating, error)

	LikeRating(ctx context.Context, userID, ratingID uuid.UUID) (bool, error)
	UnlikeRating(ctx context.Context, userID, ratingID uuid.UUID) (bool, error)
	ReportRating(ctx context.Context, userID, ratingID uuid.UUID) (bool, error)

	ListMovieRatings(ctx context.Context, movieID uuid.UUID, category *model.RatingCategory, page, perPage int) ([]model.Rating, int64, error)
	ListUserRatings(ctx context.Context, userID uuid.UUID, category *model.RatingCategory, page, perPage int) ([]model.Rating, int64, error)
	ListReported(ctx context.Context, page, perPage int) ([]model.Rating, int64, error)
}

type ratingService struct {
	tx            repository.TxManager
	repos         *repository.Registry
	notifications NotificationService
	rank          RankCache
}

func NewRatingService(tx repository.TxManager, repos *repository.Registry, notifications NotificationService, rank RankCache) RatingService {
	return &ratingService{
		tx:            tx,
		repos:         repos,
		notifications: notifications,
		rank:          rank,
	}
}

func (s *ratingService) Rate(ctx context.Context, userID, movieID uuid.UUID, category model.RatingCategory, score int, comment *string, tags []string) (*model.Rating, error) {
	if !category.Valid() || score < 0 || score > 10 {
		return nil, apperror.ErrInvalidInput
	}

	var (
		rating   *model.Rating
		newScore float64
		isNew    bool
	)

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		movie, err := r.Movies.LockForUpdate(ctx, movieID)
		if err != nil {
			return err
		}
		if category == model.CategoryDo && !movie.IsTV() {
			return apperror.ErrInvalidCategory
		}
		// Only collected movies carry a score; wish/do are stored unscored.
		if category != model.CategoryCollect {
			score = 0
		}

		if _, err := r.Users.LockForUpdate(ctx, userID); err != nil {
			return err
		}

		tagModels, err := r.Tags.GetOrCreateAll(ctx, tags)
		if err != nil {
			return err
		}

		existing, err := r.Ratings.FindActiveByUserAndMovie(ctx, userID, movieID)
		if err != nil {
			return err
		}

		ratingCountDelta := 0
		if existing == nil {
			isNew = true
			rating = &model.Rating{
				UserID:   userID,
				MovieID:  movieID,
				Category: category,
				Score:    score,
				Comment:  comment,
			}
			if err := r.Ratings.Create(ctx, rating); err != nil {
				return err
			}
			if err := r.Users.AddCategoryCount(ctx, userID, category, 1); err != nil {
				return err
			}
			if err := r.Movies.AddCategoryByCount(ctx, movieID, category, 1); err != nil {
				return err
			}
			if score > 0 {
				ratingCountDelta = 1
			}
		} else {
			rating = existing
			if existing.Category != category {
				if err := r.Users.AddCategoryCount(ctx, userID, existing.Category, -1); err != nil {
					return err
				}
				if err := r.Movies.AddCategoryByCount(ctx, movieID, existing.Category, -1); err != nil {
					return err
				}
				if err := r.Users.AddCategoryCount(ctx, userID, category, 1); err != nil {
					return err
				}
				if err := r.Movies.AddCategoryByCount(ctx, movieID, category, 1); err != nil {
					return err
				}
			}
			if existing.Score > 0 {
				ratingCountDelta--
			}
			if score > 0 {
				ratingCountDelta++
			}
			existing.Category = category
			existing.Score = score
			existing.Comment = comment
			if err := r.Ratings.Save(ctx, existing); err != nil {
				return err
			}
		}

		if err := r.Ratings.ReplaceTags(ctx, rating, tagModels); err != nil {
			return err
		}
		rating.Tags = tagModels

		if ratingCountDelta != 0 {
			if err := r.Movies.AddRatingCount(ctx, movieID, ratingCountDelta); err != nil {
				return err
			}
		}

		newScore, err = recomputeMovieScore(ctx, r, movieID, movie.RatingCount+ratingCountDelta)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Rank cache updates are best-effort and happen after commit.
	s.rank.PushScore(ctx, movieID, newScore)
	if isNew {
		s.rank.BumpDaily(ctx, movieID, 1)
	}

	return rating, nil
}

func (s *ratingService) DeleteRating(ctx context.Context, userID, movieID uuid.UUID) (bool, error) {
	var (
		deleted  bool
		newScore float64
	)

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		movie, err := r.Movies.LockForUpdate(ctx, movieID)
		if err != nil {
			return err
		}

		rating, err := r.Ratings.FindActiveByUserAndMovie(ctx, userID, movieID)
		if err != nil {
			return err
		}
		if rating == nil {
			return nil
		}

		newScore, err = removeRating(ctx, r, movie, rating)
		if err != nil {
			return err
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.rank.PushScore(ctx, movieID, newScore)
		s.rank.BumpDaily(ctx, movieID, -1)
	}
	return deleted, nil
}

func (s *ratingService) DeleteRatingByID(ctx context.Context, ratingID uuid.UUID) (bool, error) {
	var (
		deleted  bool
		newScore float64
		movieID  uuid.UUID
	)

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		rating, err := r.Ratings.FindByID(ctx, ratingID)
		if err != nil {
			return err
		}
		movie, err := r.Movies.LockForUpdate(ctx, rating.MovieID)
		if err != nil {
			return err
		}
		// Re-read under the movie lock; the row may have changed between the
		// unlocked lookup and the lock.
		rating, err = r.Ratings.FindByID(ctx, ratingID)
		if err != nil {
			return err
		}

		movieID = movie.ID
		newScore, err = removeRating(ctx, r, movie, rating)
		if err != nil {
			return err
		}

		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if deleted {
		s.rank.PushScore(ctx, movieID, newScore)
		s.rank.BumpDaily(ctx, movieID, -1)
	}
	return deleted, nil
}

// removeRating soft-deletes one active rating and reverses its counter
// effects. The caller must hold the movie lock; the returned score is the
// recomputed mean.
func removeRating(ctx context.Context, r *repository.Registry, movie *model.Movie, rating *model.Rating) (float64, error) {
	if err := r.Ratings.SoftDelete(ctx, rating.ID); err != nil {
		return 0, err
	}
	if err := r.Users.AddCategoryCount(ctx, rating.UserID, rating.Category, -1); err != nil {
		return 0, err
	}
	if err := r.Movies.AddCategoryByCount(ctx, movie.ID, rating.Category, -1); err != nil {
		return 0, err
	}

	ratingCountDelta := 0
	if rating.Score > 0 {
		ratingCountDelta = -1
		if err := r.Movies.AddRatingCount(ctx, movie.ID, -1); err != nil {
			return 0, err
		}
	}

	return recomputeMovieScore(ctx, r, movie.ID, movie.RatingCount+ratingCountDelta)
}

func (s *ratingService) Get(ctx context.Context, ratingID uuid.UUID) (*model.Rating, error) {
	return s.repos.Ratings.FindByID(ctx, ratingID)
}

// recomputeMovieScore re-derives the stored mean from the active scored
// ratings. Must run inside the operation's transaction, after the rating row
// and rating_count have been updated.
func recomputeMovieScore(ctx context.Context, r *repository.Registry, movieID uuid.UUID, ratingCount int) (float64, error) {
	if ratingCount <= 0 {
		return 0, r.Movies.SetScore(ctx, movieID, 0)
	}

	sum, err := r.Ratings.SumActiveScores(ctx, movieID)
	if err != nil {
		return 0, err
	}

	score := float64(sum) / float64(ratingCount)
	return score, r.Movies.SetScore(ctx, movieID, score)
}

func (s *ratingService) LikeRating(ctx context.Context, userID, ratingID uuid.UUID) (bool, error) {
	var (
		liked   bool
		created *model.Notification
	)

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		rating, err := r.Ratings.FindByID(ctx, ratingID)
		if err != nil {
			return err
		}

		existing, err := r.Ratings.FindLike(ctx, userID, ratingID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		if err := r.Ratings.CreateLike(ctx, &model.RatingLike{UserID: userID, RatingID: ratingID}); err != nil {
			return err
		}
		if err := r.Ratings.AddLikeCount(ctx, ratingID, 1); err != nil {
			return err
		}

		if rating.UserID != userID {
			created, err = s.notifications.CreateOne(ctx, r, rating.UserID, userID, model.NotificationRatingAction, &ratingID)
			if err != nil {
				return err
			}
		}

		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.notifications.Publish(ctx, created)
	return liked, nil
}

func (s *ratingService) UnlikeRating(ctx context.Context, userID, ratingID uuid.UUID) (bool, error) {
	var unliked bool

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		rating, err := r.Ratings.FindByID(ctx, ratingID)
		if err != nil {
			return err
		}

		existing, err := r.Ratings.FindLike(ctx, userID, ratingID)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}

		if err := r.Ratings.DeleteLike(ctx, userID, ratingID); err != nil {
			return err
		}
		if err := r.Ratings.AddLikeCount(ctx, ratingID, -1); err != nil {
			return err
		}
		if _, err := s.notifications.Retract(ctx, r, rating.UserID, userID, model.NotificationRatingAction, &ratingID); err != nil {
			return err
		}

		unliked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return unliked, nil
}

func (s *ratingService) ReportRating(ctx context.Context, userID, ratingID uuid.UUID) (bool, error) {
	var reported bool

	err := s.tx.Do(ctx, func(r *repository.Registry) error {
		rating, err := r.Ratings.FindByID(ctx, ratingID)
		if err != nil {
			return err
		}
		// Users cannot report their own rating.
		if rating.UserID == userID {
			return nil
		}

		exists, err := r.Ratings.HasReport(ctx, userID, ratingID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		if err := r.Ratings.CreateReport(ctx, &model.RatingReport{UserID: userID, RatingID: ratingID}); err != nil {
			return err
		}
		if err := r.Ratings.AddReportCount(ctx, ratingID, 1); err != nil {
			return err
		}

		reported = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return reported, nil
}

func (s *ratingService) ListMovieRatings(ctx context.Context, movieID uuid.UUID, category *model.RatingCategory, page, perPage int) ([]model.Rating, int64, error) {
	return s.repos.Ratings.ListByMovie(ctx, movieID, category, (page-1)*perPage, perPage)
}

func (s *ratingService) ListUserRatings(ctx context.Context, userID uuid.UUID, category *model.RatingCategory, page, perPage int) ([]model.Rating, int64, error) {
	return s.repos.Ratings.ListByUser(ctx, userID, category, (page-1)*perPage, perPage)
}

func (s *ratingService) ListReported(ctx context.Context, page, perPage int) ([]model.Rating, int64, error) {
	return s.repos.Ratings.ListReported(ctx, (page-1)*perPage, perPage)
}
