package service

import (
	"context"
	"io"
	"log"

	"github.com/google/uuid"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/storage"
)

type CelebrityInput struct {
	Name      string  `json:"name" binding:"required,max=128"`
	NameEN    *string `json:"name_en" binding:"omitempty,max=128"`
	Gender    *string `json:"gender" binding:"omitempty,oneof=male female"`
	BornPlace *string `json:"born_place" binding:"omitempty,max=64"`
	Aka       *string `json:"aka"`
}

type CelebrityService interface {
	Create(ctx context.Context, input CelebrityInput) (*model.Celebrity, error)
	Update(ctx context.Context, id uuid.UUID, input CelebrityInput) (*model.Celebrity, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Celebrity, error)
	List(ctx context.Context, page, perPage int) ([]model.Celebrity, int64, error)
	Search(ctx context.Context, query string, page, perPage int) ([]model.Celebrity, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadAvatar(ctx context.Context, id uuid.UUID, reader io.Reader, fileName string) (*model.Celebrity, error)
}

type celebrityService struct {
	repo         repository.CelebrityRepository
	search       SearchService
	imageStorage storage.ImageStorage
}

func NewCelebrityService(repo repository.CelebrityRepository, search SearchService, imageStorage storage.ImageStorage) CelebrityService {
	return &celebrityService{repo: repo, search: search, imageStorage: imageStorage}
}

func (s *celebrityService) Create(ctx context.Context, input CelebrityInput) (*model.Celebrity, error) {
	celebrity := &model.Celebrity{
		Name:      input.Name,
		NameEN:    input.NameEN,
		Gender:    input.Gender,
		BornPlace: input.BornPlace,
		Aka:       input.Aka,
	}
	if err := s.repo.Create(ctx, celebrity); err != nil {
		return nil, err
	}

	if err := s.search.IndexCelebrity(celebrity); err != nil {
		log.Printf("failed to index celebrity %s: %v", celebrity.ID, err)
	}
	return celebrity, nil
}

func (s *celebrityService) Update(ctx context.Context, id uuid.UUID, input CelebrityInput) (*model.Celebrity, error) {
	celebrity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	celebrity.Name = input.Name
	celebrity.NameEN = input.NameEN
	celebrity.Gender = input.Gender
	celebrity.BornPlace = input.BornPlace
	celebrity.Aka = input.Aka
	if err := s.repo.Save(ctx, celebrity); err != nil {
		return nil, err
	}

	if err := s.search.IndexCelebrity(celebrity); err != nil {
		log.Printf("failed to index celebrity %s: %v", celebrity.ID, err)
	}
	return celebrity, nil
}

func (s *celebrityService) Get(ctx context.Context, id uuid.UUID) (*model.Celebrity, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *celebrityService) List(ctx context.Context, page, perPage int) ([]model.Celebrity, int64, error) {
	return s.repo.List(ctx, (page-1)*perPage, perPage)
}

func (s *celebrityService) Search(ctx context.Context, query string, page, perPage int) ([]model.Celebrity, int64, error) {
	rawIDs, total, err := s.search.SearchCelebrities(query, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if len(rawIDs) == 0 {
		return nil, total, nil
	}

	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	celebrities, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	byID := make(map[uuid.UUID]model.Celebrity, len(celebrities))
	for _, c := range celebrities {
		byID[c.ID] = c
	}
	ordered := make([]model.Celebrity, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, total, nil
}

func (s *celebrityService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	if err := s.search.DeleteCelebrity(id.String()); err != nil {
		log.Printf("failed to remove celebrity %s from search index: %v", id, err)
	}
	return nil
}

func (s *celebrityService) UploadAvatar(ctx context.Context, id uuid.UUID, reader io.Reader, fileName string) (*model.Celebrity, error) {
	celebrity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reader == nil || s.imageStorage == nil {
		return nil, apperror.ErrInvalidInput
	}

	url, err := s.imageStorage.UploadImage(ctx, reader, "celebrities", fileName)
	if err != nil {
		return nil, err
	}

	if celebrity.AvatarURL != nil {
		if err := s.imageStorage.DeleteImage(ctx, *celebrity.AvatarURL); err != nil {
			log.Printf("failed to delete old avatar for celebrity %s: %v", id, err)
		}
	}

	celebrity.AvatarURL = &url
	if err := s.repo.Save(ctx, celebrity); err != nil {
		return nil, err
	}
	return celebrity, nil
}
