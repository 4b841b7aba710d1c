package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/pkg/apperror"
	"reelist.io/reelist/pkg/storage"
)

type UpdateProfileInput struct {
	Username  *string `json:"username" binding:"omitempty,min=3,max=50"`
	Password  *string `json:"password" binding:"omitempty,min=8"`
	Signature *string `json:"signature"`
}

type AvatarFile struct {
	Reader   io.Reader
	FileName string
}

type ProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.User, error)
	Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput, avatar *AvatarFile) (*model.User, error)

	// Lock demotes the user to the locked role; Unlock restores the regular
	// user role. Both are moderator actions.
	Lock(ctx context.Context, userID uuid.UUID) error
	Unlock(ctx context.Context, userID uuid.UUID) error
}

type profileService struct {
	repo         repository.UserRepository
	imageStorage storage.ImageStorage
}

func NewProfileService(repo repository.UserRepository, imageStorage storage.ImageStorage) ProfileService {
	return &profileService{repo: repo, imageStorage: imageStorage}
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, input UpdateProfileInput, avatar *AvatarFile) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil && *input.Username != "" && *input.Username != user.Username {
		if _, err := s.repo.FindByUsername(ctx, *input.Username); err == nil {
			return nil, apperror.ErrAlreadyExists
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		user.Username = *input.Username
	}

	if input.Password != nil && *input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if input.Signature != nil {
		user.Signature = normalizeOptional(input.Signature)
	}

	if avatar != nil && avatar.Reader != nil && s.imageStorage != nil {
		url, err := s.imageStorage.UploadImage(ctx, avatar.Reader, "avatars", avatar.FileName)
		if err != nil {
			return nil, err
		}
		if user.AvatarURL != nil {
			if err := s.imageStorage.DeleteImage(ctx, *user.AvatarURL); err != nil {
				log.Printf("failed to delete old avatar for user %s: %v", userID, err)
			}
		}
		user.AvatarURL = &url
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *profileService) setRoleByName(ctx context.Context, userID uuid.UUID, roleName string) error {
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return err
	}
	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.repo.SetRole(ctx, userID, role.ID)
}

func (s *profileService) Lock(ctx context.Context, userID uuid.UUID) error {
	return s.setRoleByName(ctx, userID, model.RoleLocked)
}

func (s *profileService) Unlock(ctx context.Context, userID uuid.UUID) error {
	return s.setRoleByName(ctx, userID, model.RoleUser)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}

	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}

	result := trimmed
	return &result
}
