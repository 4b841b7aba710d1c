package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reelist.io/reelist/internal/model"
)

type MovieRepository interface {
	Create(ctx context.Context, movie *model.Movie) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Movie, error)
	Save(ctx context.Context, movie *model.Movie) error
	List(ctx context.Context, offset, limit int) ([]model.Movie, int64, error)
	ListByCinemaStatus(ctx context.Context, status, offset, limit int) ([]model.Movie, int64, error)
	Random(ctx context.Context, limit int) ([]model.Movie, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	GetOrCreateGenres(ctx context.Context, names []string) ([]model.Genre, error)
	GetOrCreateCountries(ctx context.Context, names []string) ([]model.Country, error)

	LockForUpdate(ctx context.Context, id uuid.UUID) (*model.Movie, error)
	AddCategoryByCount(ctx context.Context, id uuid.UUID, category model.RatingCategory, delta int) error
	AddRatingCount(ctx context.Context, id uuid.UUID, delta int) error
	SetScore(ctx context.Context, id uuid.UUID, score float64) error
	ResetCounters(ctx context.Context, id uuid.UUID) error
}

type movieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) MovieRepository {
	return &movieRepository{db: db}
}

func (r *movieRepository) Create(ctx context.Context, movie *model.Movie) error {
	return r.db.WithContext(ctx).Create(movie).Error
}

func (r *movieRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).
		Preload("Genres").
		Preload("Countries").
		Preload("Directors").
		Preload("Casts").
		Where("id = ?", id).
		First(&movie).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &movie, nil
}

func (r *movieRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&movies).Error
	return movies, err
}

func (r *movieRepository) Save(ctx context.Context, movie *model.Movie) error {
	return r.db.WithContext(ctx).Save(movie).Error
}

func (r *movieRepository) List(ctx context.Context, offset, limit int) ([]model.Movie, int64, error) {
	var movies []model.Movie
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Movie{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&movies).Error
	return movies, total, err
}

func (r *movieRepository) ListByCinemaStatus(ctx context.Context, status, offset, limit int) ([]model.Movie, int64, error) {
	var movies []model.Movie
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Movie{}).Where("cinema_status = ?", status)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&movies).Error
	return movies, total, err
}

func (r *movieRepository) Random(ctx context.Context, limit int) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Order("random()").Limit(limit).Find(&movies).Error
	return movies, err
}

func (r *movieRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Movie{}).Error
}

func (r *movieRepository) GetOrCreateGenres(ctx context.Context, names []string) ([]model.Genre, error) {
	genres := make([]model.Genre, 0, len(names))
	for _, name := range names {
		var genre model.Genre
		if err := r.db.WithContext(ctx).Where(model.Genre{Name: name}).FirstOrCreate(&genre).Error; err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, nil
}

func (r *movieRepository) GetOrCreateCountries(ctx context.Context, names []string) ([]model.Country, error) {
	countries := make([]model.Country, 0, len(names))
	for _, name := range names {
		var country model.Country
		if err := r.db.WithContext(ctx).Where(model.Country{Name: name}).FirstOrCreate(&country).Error; err != nil {
			return nil, err
		}
		countries = append(countries, country)
	}
	return countries, nil
}

func (r *movieRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&movie).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &movie, nil
}

func (r *movieRepository) AddCategoryByCount(ctx context.Context, id uuid.UUID, category model.RatingCategory, delta int) error {
	column := movieCategoryColumn(category)
	return r.db.WithContext(ctx).Model(&model.Movie{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func (r *movieRepository) AddRatingCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Model(&model.Movie{}).Where("id = ?", id).
		UpdateColumn("rating_count", gorm.Expr("rating_count + ?", delta)).Error
}

func (r *movieRepository) SetScore(ctx context.Context, id uuid.UUID, score float64) error {
	return r.db.WithContext(ctx).Model(&model.Movie{}).Where("id = ?", id).
		UpdateColumn("score", score).Error
}

func (r *movieRepository) ResetCounters(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Movie{}).Where("id = ?", id).
		UpdateColumns(map[string]any{
			"wish_by_count":    0,
			"do_by_count":      0,
			"collect_by_count": 0,
			"rating_count":     0,
			"score":            0,
		}).Error
}

func movieCategoryColumn(category model.RatingCategory) string {
	switch category {
	case model.CategoryWish:
		return "wish_by_count"
	case model.CategoryDo:
		return "do_by_count"
	default:
		return "collect_by_count"
	}
}
