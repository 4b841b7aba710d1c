package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"reelist.io/reelist/internal/model"
	"reelist.io/reelist/internal/repository"
	"reelist.io/reelist/pkg/apperror"
)

// Token purposes. Auth tokens open the API; confirm/reset tokens are only
// valid for their single account operation.
const (
	TokenPurposeAuth    = "auth"
	TokenPurposeConfirm = "confirm"
	TokenPurposeReset   = "reset"
)

type purposeClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type AuthResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *model.User `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	// Login accepts either username or email as the identifier.
	Login(ctx context.Context, identifier, password string) (*AuthResponse, error)
	ConfirmEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error

	// ParseToken validates an auth-purpose token and returns the user id.
	ParseToken(token string) (uuid.UUID, error)
}

type authService struct {
	repo       repository.UserRepository
	mail       MailService
	secret     string
	tokenTTL   time.Duration
	adminEmail string
}

func NewAuthService(repo repository.UserRepository, mail MailService) AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "change-me"
	}

	ttl := 24 * time.Hour
	if ttlStr := os.Getenv("JWT_TTL_MINUTES"); ttlStr != "" {
		if minutes, err := strconv.Atoi(ttlStr); err == nil {
			ttl = time.Duration(minutes) * time.Minute
		}
	}

	return &authService{
		repo:       repo,
		mail:       mail,
		secret:     secret,
		tokenTTL:   ttl,
		adminEmail: os.Getenv("ADMIN_EMAIL"),
	}
}

func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperror.ErrAlreadyExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	roleName := model.RoleUser
	if s.adminEmail != "" && email == s.adminEmail {
		roleName = model.RoleAdministrator
	}
	role, err := s.repo.FindRoleByName(ctx, roleName)
	if err != nil {
		return nil, fmt.Errorf("role %s not found: %w", roleName, err)
	}

	roleID := role.ID
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		RoleID:       &roleID,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Role = *role

	token, err := s.generatePurposeToken(user.ID, TokenPurposeConfirm, time.Hour)
	if err != nil {
		return nil, err
	}
	if err := s.mail.Enqueue(ctx, EmailTask{
		To:       email,
		Category: MailConfirm,
		Username: username,
		Token:    token,
	}); err != nil {
		// Registration succeeded; the confirm mail can be re-requested.
		log.Printf("failed to enqueue confirm email for %s: %v", username, err)
	}

	user.PasswordHash = ""
	return user, nil
}

func (s *authService) Login(ctx context.Context, identifier, password string) (*AuthResponse, error) {
	user, err := s.repo.FindByUsername(ctx, identifier)
	if errors.Is(err, apperror.ErrNotFound) {
		user, err = s.repo.FindByEmail(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrUnauthorized
	}

	now := time.Now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	token, expiresAt, err := s.generateAuthToken(user)
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresAt,
		User:        user,
	}, nil
}

func (s *authService) ConfirmEmail(ctx context.Context, token string) error {
	userID, err := s.parsePurposeToken(token, TokenPurposeConfirm)
	if err != nil {
		return err
	}
	return s.repo.SetEmailConfirmed(ctx, userID)
}

func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the address is registered.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := s.generatePurposeToken(user.ID, TokenPurposeReset, 30*time.Minute)
	if err != nil {
		return err
	}
	return s.mail.Enqueue(ctx, EmailTask{
		To:       user.Email,
		Category: MailResetPassword,
		Username: user.Username,
		Token:    token,
	})
}

func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.parsePurposeToken(token, TokenPurposeReset)
	if err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hashed)
	return s.repo.Save(ctx, user)
}

func (s *authService) ParseToken(token string) (uuid.UUID, error) {
	return s.parsePurposeToken(token, TokenPurposeAuth)
}

func (s *authService) generateAuthToken(user *model.User) (string, int64, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := purposeClaims{
		Purpose: TokenPurposeAuth,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", 0, err
	}
	return signed, expiresAt.Unix(), nil
}

func (s *authService) generatePurposeToken(userID uuid.UUID, purpose string, ttl time.Duration) (string, error) {
	claims := purposeClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func (s *authService) parsePurposeToken(tokenString, purpose string) (uuid.UUID, error) {
	claims := &purposeClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	if claims.Purpose != purpose {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	return userID, nil
}
