package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"reelist.io/reelist/internal/model"
)

type CelebrityRepository interface {
	Create(ctx context.Context, celebrity *model.Celebrity) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Celebrity, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Celebrity, error)
	Save(ctx context.Context, celebrity *model.Celebrity) error
	List(ctx context.Context, offset, limit int) ([]model.Celebrity, int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type celebrityRepository struct {
	db *gorm.DB
}

func NewCelebrityRepository(db *gorm.DB) CelebrityRepository {
	return &celebrityRepository{db: db}
}

func (r *celebrityRepository) Create(ctx context.Context, celebrity *model.Celebrity) error {
	return r.db.WithContext(ctx).Create(celebrity).Error
}

func (r *celebrityRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Celebrity, error) {
	var celebrity model.Celebrity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&celebrity).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &celebrity, nil
}

func (r *celebrityRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Celebrity, error) {
	var celebrities []model.Celebrity
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&celebrities).Error
	return celebrities, err
}

func (r *celebrityRepository) Save(ctx context.Context, celebrity *model.Celebrity) error {
	return r.db.WithContext(ctx).Save(celebrity).Error
}

func (r *celebrityRepository) List(ctx context.Context, offset, limit int) ([]model.Celebrity, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Celebrity{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var celebrities []model.Celebrity
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&celebrities).Error
	return celebrities, total, err
}

func (r *celebrityRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Celebrity{}).Error
}
