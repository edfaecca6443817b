package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adgen/internal/domain"
	"adgen/internal/logging"
	"adgen/internal/models"
	"adgen/internal/repository"
	"adgen/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAccountRouter(db *gorm.DB, userID uint) *gin.Engine {
	h := NewAccountHandler(repository.NewUserRepository(db), repository.NewLedgerRepository(db),
		repository.NewAssetRepository(db), logging.Discard())
	r := gin.New()
	g := r.Group("/me", withUser(userID))
	g.GET("", h.Me)
	g.PATCH("/brand", h.UpdateBrand)
	g.GET("/ledger", h.Ledger)
	g.GET("/assets/:id", h.Asset)
	g.GET("/dashboard", h.Dashboard)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func seedAsset(t *testing.T, db *gorm.DB, id string, userID uint, kind string) {
	t.Helper()
	require.NoError(t, db.Create(&models.Asset{
		ID: id, UserID: userID, Kind: kind, Title: "t", Prompt: "p", Width: 1080, Height: 1080,
		Aspect: domain.AspectSquare, CostTokens: 1, Status: domain.AssetStatusReady, CorrelationID: "c-" + id,
	}).Error)
}

func TestAccountMeAndDashboard(t *testing.T) {
	db := testutil.OpenDB(t)
	u := testutil.CreateUser(t, db, "m@test.io", 7)
	seedAsset(t, db, "p1", u.ID, domain.AssetKindPhoto)
	seedAsset(t, db, "v1", u.ID, domain.AssetKindVideo)
	r := newAccountRouter(db, u.ID)

	w := get(r, "/me")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tokens":7`)
	assert.NotContains(t, w.Body.String(), "password")

	w = get(r, "/me/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Tokens int `json:"tokens"`
		Stats  struct {
			TotalAssets int `json:"total_assets"`
			PhotoAds    int `json:"photo_ads"`
			VideoAds    int `json:"video_ads"`
			ThisWeek    int `json:"this_week"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Tokens)
	assert.Equal(t, 2, body.Stats.TotalAssets)
	assert.Equal(t, 1, body.Stats.PhotoAds)
	assert.Equal(t, 1, body.Stats.VideoAds)
	assert.Equal(t, 2, body.Stats.ThisWeek)

	assert.Equal(t, http.StatusNotFound, get(newAccountRouter(db, 999), "/me").Code)
}

func TestAccountAssetOwnerOnly(t *testing.T) {
	db := testutil.OpenDB(t)
	owner := testutil.CreateUser(t, db, "o@test.io", 0)
	other := testutil.CreateUser(t, db, "x@test.io", 0)
	seedAsset(t, db, "mine", owner.ID, domain.AssetKindPhoto)

	w := get(newAccountRouter(db, owner.ID), "/me/assets/mine")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"READY"`)

	assert.Equal(t, http.StatusNotFound, get(newAccountRouter(db, other.ID), "/me/assets/mine").Code)
	assert.Equal(t, http.StatusNotFound, get(newAccountRouter(db, owner.ID), "/me/assets/nope").Code)
}

func TestAccountLedgerLimit(t *testing.T) {
	db := testutil.OpenDB(t)
	u := testutil.CreateUser(t, db, "l@test.io", 300)
	ledger := repository.NewLedgerRepository(db)
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Debit(t.Context(), u.ID, 1, fmt.Sprintf("cid-%d", i)))
	}
	r := newAccountRouter(db, u.ID)

	var body struct {
		Entries []models.LedgerEntry `json:"entries"`
	}
	w := get(r, "/me/ledger?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 2)
	assert.Greater(t, body.Entries[0].ID, body.Entries[1].ID, "newest first")

	w = get(r, "/me/ledger")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Entries, 3)

	assert.Equal(t, http.StatusBadRequest, get(r, "/me/ledger?limit=abc").Code)
	assert.Equal(t, http.StatusOK, get(r, "/me/ledger?limit=5000").Code)
}

func TestAccountUpdateBrand(t *testing.T) {
	db := testutil.OpenDB(t)
	u := testutil.CreateUser(t, db, "b@test.io", 0)
	r := newAccountRouter(db, u.ID)

	patch := func(body string) int {
		req := httptest.NewRequest(http.MethodPatch, "/me/brand", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, patch(`{"name":"Acme","colors":["#ff0000","#00ff00"],"logo":"https://acme.test/logo.png"}`))
	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.Equal(t, "Acme", got.BrandName)
	assert.JSONEq(t, `["#ff0000","#00ff00"]`, string(got.BrandColors))
	assert.Equal(t, "https://acme.test/logo.png", got.BrandLogo)

	assert.Equal(t, http.StatusBadRequest, patch(`{"colors":["red"]}`))
	assert.Equal(t, http.StatusBadRequest, patch(`{"logo":"not a url"}`))
}
