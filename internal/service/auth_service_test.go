package service

import (
	"context"
	"testing"
	"time"

	"adgen/config"
	"adgen/internal/auth"
	"adgen/internal/domain"
	"adgen/internal/models"
	"adgen/internal/repository"
	"adgen/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *config.Config, func(uint) []models.LedgerEntry) {
	t.Helper()
	db := testutil.OpenDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{
			AccessSecret:  "a",
			RefreshSecret: "r",
			AccessExpiry:  time.Minute,
			RefreshExpiry: time.Hour,
			Issuer:        "test",
		},
		Tokens: config.TokensConfig{SignupGrant: 10},
	}
	entries := func(userID uint) []models.LedgerEntry {
		var list []models.LedgerEntry
		require.NoError(t, db.Where("user_id = ?", userID).Find(&list).Error)
		return list
	}
	return NewAuthService(cfg, repository.NewUserRepository(db)), cfg, entries
}

func TestRegisterGrantsSignupTokens(t *testing.T) {
	svc, cfg, entries := newAuthService(t)
	ctx := context.Background()

	u, pair, err := svc.Register(ctx, "Ada", " Ada@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, 10, u.Tokens)

	claims, err := auth.ParseAccessToken(&cfg.JWT, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	list := entries(u.ID)
	require.Len(t, list, 1)
	assert.Equal(t, 10, list[0].Delta)
	assert.Equal(t, domain.LedgerReasonGrant, list[0].Reason)
	assert.Equal(t, domain.LedgerRefSignup, list[0].Ref)

	_, _, err = svc.Register(ctx, "Ada", "ada@example.com", "other")
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, "Bob", "bob@example.com", "hunter22")
	require.NoError(t, err)

	u, pair, err := svc.Login(ctx, "BOB@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)
	assert.NotEmpty(t, pair.RefreshToken)

	_, _, err = svc.Login(ctx, "bob@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLoginWithGoogle(t *testing.T) {
	svc, _, entries := newAuthService(t)
	ctx := context.Background()

	u, _, isNew, err := svc.LoginWithGoogle(ctx, GoogleProfile{ID: "g-1", Email: "g@example.com", Name: "Gee"})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 10, u.Tokens)
	assert.Len(t, entries(u.ID), 1)

	again, _, isNew, err := svc.LoginWithGoogle(ctx, GoogleProfile{ID: "g-1", Email: "g@example.com"})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, u.ID, again.ID)
	assert.Len(t, entries(u.ID), 1, "no second grant")

	// Google-only accounts cannot use password login
	_, _, err = svc.Login(ctx, "g@example.com", "")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestLoginWithGoogleLinksExistingEmail(t *testing.T) {
	svc, _, entries := newAuthService(t)
	ctx := context.Background()
	reg, _, err := svc.Register(ctx, "Cy", "cy@example.com", "pw123456")
	require.NoError(t, err)

	u, _, isNew, err := svc.LoginWithGoogle(ctx, GoogleProfile{ID: "g-2", Email: "cy@example.com", Picture: "https://img/cy.png"})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, reg.ID, u.ID)
	assert.Len(t, entries(u.ID), 1)

	byGoogle, _, _, err := svc.LoginWithGoogle(ctx, GoogleProfile{ID: "g-2", Email: "cy@example.com"})
	require.NoError(t, err)
	assert.Equal(t, reg.ID, byGoogle.ID)
	assert.Equal(t, "https://img/cy.png", byGoogle.AvatarURL)
}

func TestRefresh(t *testing.T) {
	svc, cfg, _ := newAuthService(t)
	ctx := context.Background()
	u, pair, err := svc.Register(ctx, "Di", "di@example.com", "pw123456")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := auth.ParseAccessToken(&cfg.JWT, next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	orphan, err := auth.GenerateRefreshToken(&cfg.JWT, 9999)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, orphan)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
