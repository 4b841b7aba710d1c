package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reelist.io/reelist/internal/model"
)

type RatingRepository interface {
	// FindActiveByUserAndMovie returns (nil, nil) when the user holds no
	// active rating on the movie.
	FindActiveByUserAndMovie(ctx context.Context, userID, movieID uuid.UUID) (*model.Rating, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Rating, error)
	Create(ctx context.Context, rating *model.Rating) error
	Save(ctx context.Context, rating *model.Rating) error
	ReplaceTags(ctx context.Context, rating *model.Rating, tags []model.Tag) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// SumActiveScores sums the scores of active scored ratings on a movie.
	SumActiveScores(ctx context.Context, movieID uuid.UUID) (int64, error)
	ListActiveByMovie(ctx context.Context, movieID uuid.UUID) ([]model.Rating, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.Rating, error)
	// ListAllActive streams every active rating row, for the similarity
	// matrix rebuild. Only ids, category and score are selected.
	ListAllActive(ctx context.Context) ([]model.Rating, error)
	ListByMovie(ctx context.Context, movieID uuid.UUID, category *model.RatingCategory, offset, limit int) ([]model.Rating, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, category *model.RatingCategory, offset, limit int) ([]model.Rating, int64, error)

	FindLike(ctx context.Context, userID, ratingID uuid.UUID) (*model.RatingLike, error)
	CreateLike(ctx context.Context, like *model.RatingLike) error
	DeleteLike(ctx context.Context, userID, ratingID uuid.UUID) error
	AddLikeCount(ctx context.Context, ratingID uuid.UUID, delta int) error

	HasReport(ctx context.Context, userID, ratingID uuid.UUID) (bool, error)
	CreateReport(ctx context.Context, report *model.RatingReport) error
	AddReportCount(ctx context.Context, ratingID uuid.UUID, delta int) error
	ListReported(ctx context.Context, offset, limit int) ([]model.Rating, int64, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) FindActiveByUserAndMovie(ctx context.Context, userID, movieID uuid.UUID) (*model.Rating, error) {
	var rating model.Rating
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *ratingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Rating, error) {
	var rating model.Rating
	err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("User").
		Preload("Movie").
		Where("id = ?", id).
		First(&rating).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &rating, nil
}

func (r *ratingRepository) Create(ctx context.Context, rating *model.Rating) error {
	return r.db.WithContext(ctx).Create(rating).Error
}

func (r *ratingRepository) Save(ctx context.Context, rating *model.Rating) error {
	return r.db.WithContext(ctx).Omit("Tags").Save(rating).Error
}

func (r *ratingRepository) ReplaceTags(ctx context.Context, rating *model.Rating, tags []model.Tag) error {
	return r.db.WithContext(ctx).Model(rating).Association("Tags").Replace(tags)
}

func (r *ratingRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Rating{}).Error
}

func (r *ratingRepository) SumActiveScores(ctx context.Context, movieID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&model.Rating{}).
		Where("movie_id = ? AND score > 0", movieID).
		Select("COALESCE(SUM(score), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *ratingRepository) ListActiveByMovie(ctx context.Context, movieID uuid.UUID) ([]model.Rating, error) {
	var ratings []model.Rating
	err := r.db.WithContext(ctx).Where("movie_id = ?", movieID).Find(&ratings).Error
	return ratings, err
}

func (r *ratingRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.Rating, error) {
	var ratings []model.Rating
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&ratings).Error
	return ratings, err
}

func (r *ratingRepository) ListAllActive(ctx context.Context) ([]model.Rating, error) {
	var ratings []model.Rating
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "movie_id", "category", "score").
		Find(&ratings).Error
	return ratings, err
}

func (r *ratingRepository) ListByMovie(ctx context.Context, movieID uuid.UUID, category *model.RatingCategory, offset, limit int) ([]model.Rating, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Rating{}).Where("movie_id = ?", movieID)
	if category != nil {
		query = query.Where("category = ?", *category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ratings []model.Rating
	err := query.
		Preload("Tags").
		Preload("User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "username", "avatar_url")
		}).
		Order("created_at desc").
		Offset(offset).Limit(limit).
		Find(&ratings).Error
	return ratings, total, err
}

func (r *ratingRepository) ListByUser(ctx context.Context, userID uuid.UUID, category *model.RatingCategory, offset, limit int) ([]model.Rating, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Rating{}).Where("user_id = ?", userID)
	if category != nil {
		query = query.Where("category = ?", *category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ratings []model.Rating
	err := query.
		Preload("Tags").
		Preload("Movie").
		Order("updated_at desc").
		Offset(offset).Limit(limit).
		Find(&ratings).Error
	return ratings, total, err
}

func (r *ratingRepository) FindLike(ctx context.Context, userID, ratingID uuid.UUID) (*model.RatingLike, error) {
	var like model.RatingLike
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND rating_id = ?", userID, ratingID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (r *ratingRepository) CreateLike(ctx context.Context, like *model.RatingLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

func (r *ratingRepository) DeleteLike(ctx context.Context, userID, ratingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND rating_id = ?", userID, ratingID).
		Delete(&model.RatingLike{}).Error
}

func (r *ratingRepository) AddLikeCount(ctx context.Context, ratingID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Rating{}).Where("id = ?", ratingID).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error
}

func (r *ratingRepository) HasReport(ctx context.Context, userID, ratingID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.RatingReport{}).
		Where("user_id = ? AND rating_id = ?", userID, ratingID).
		Count(&count).Error
	return count > 0, err
}

func (r *ratingRepository) CreateReport(ctx context.Context, report *model.RatingReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *ratingRepository) AddReportCount(ctx context.Context, ratingID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Rating{}).Where("id = ?", ratingID).
		UpdateColumn("report_count", gorm.Expr("report_count + ?", delta)).Error
}

func (r *ratingRepository) ListReported(ctx context.Context, offset, limit int) ([]model.Rating, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Rating{}).Where("report_count > 0")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ratings []model.Rating
	err := query.
		Preload("User").
		Preload("Movie").
		Order("report_count desc").
		Offset(offset).Limit(limit).
		Find(&ratings).Error
	return ratings, total, err
}
