package service

import (
	"context"
	"errors"
	"strings"

	"adgen/config"
	"adgen/internal/auth"
	"adgen/internal/models"
	"adgen/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists  = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
)

// GoogleProfile is the subset of the Google userinfo response used for sign-in.
type GoogleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type AuthService struct {
	cfg      *config.Config
	userRepo *repository.UserRepository
}

func NewAuthService(cfg *config.Config, userRepo *repository.UserRepository) *AuthService {
	return &AuthService{cfg: cfg, userRepo: userRepo}
}

// Register creates a password account holding the signup grant.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*models.User, auth.TokenPair, error) {
	email = normalizeEmail(email)
	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, auth.TokenPair{}, ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.TokenPair{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, auth.TokenPair{}, err
	}
	u := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.CreateWithGrant(ctx, u, s.cfg.Tokens.SignupGrant); err != nil {
		return nil, auth.TokenPair{}, err
	}
	pair, err := auth.GenerateTokenPair(&s.cfg.JWT, u.ID, u.Email)
	return u, pair, err
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, auth.TokenPair, error) {
	u, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.TokenPair{}, ErrInvalidCreds
		}
		return nil, auth.TokenPair{}, err
	}
	if u.PasswordHash == "" {
		// Google-only account
		return nil, auth.TokenPair{}, ErrInvalidCreds
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, auth.TokenPair{}, ErrInvalidCreds
	}
	pair, err := auth.GenerateTokenPair(&s.cfg.JWT, u.ID, u.Email)
	return u, pair, err
}

// LoginWithGoogle finds the account by Google id, links it to an existing email account, or
// creates a new account with the signup grant. The bool reports whether the account is new.
func (s *AuthService) LoginWithGoogle(ctx context.Context, p GoogleProfile) (*models.User, auth.TokenPair, bool, error) {
	if p.ID == "" || p.Email == "" {
		return nil, auth.TokenPair{}, false, ErrInvalidCreds
	}
	u, err := s.userRepo.GetByGoogleID(ctx, p.ID)
	if err == nil {
		pair, err := auth.GenerateTokenPair(&s.cfg.JWT, u.ID, u.Email)
		return u, pair, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.TokenPair{}, false, err
	}

	email := normalizeEmail(p.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		if err := s.userRepo.LinkGoogle(ctx, existing.ID, p.ID, p.Picture); err != nil {
			return nil, auth.TokenPair{}, false, err
		}
		pair, err := auth.GenerateTokenPair(&s.cfg.JWT, existing.ID, existing.Email)
		return existing, pair, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, auth.TokenPair{}, false, err
	}

	gid := p.ID
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	u = &models.User{
		Name:      name,
		Email:     email,
		GoogleID:  &gid,
		AvatarURL: p.Picture,
	}
	if err := s.userRepo.CreateWithGrant(ctx, u, s.cfg.Tokens.SignupGrant); err != nil {
		return nil, auth.TokenPair{}, false, err
	}
	pair, err := auth.GenerateTokenPair(&s.cfg.JWT, u.ID, u.Email)
	return u, pair, true, err
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return auth.TokenPair{}, err
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.TokenPair{}, auth.ErrInvalidToken
		}
		return auth.TokenPair{}, err
	}
	return auth.GenerateTokenPair(&s.cfg.JWT, u.ID, u.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
