package repository

import (
	"context"

	"gorm.io/gorm"

	"reelist.io/reelist/internal/model"
)

type TagRepository interface {
	// GetOrCreate dedups tags by name, creating lazily on first use.
	GetOrCreate(ctx context.Context, name string) (*model.Tag, error)
	GetOrCreateAll(ctx context.Context, names []string) ([]model.Tag, error)
}

type tagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) GetOrCreate(ctx context.Context, name string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.WithContext(ctx).Where(model.Tag{Name: name}).FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) GetOrCreateAll(ctx context.Context, names []string) ([]model.Tag, error) {
	tags := make([]model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		tag, err := r.GetOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}
