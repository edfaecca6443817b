package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adgen/config"
	"adgen/internal/domain"
	"adgen/internal/logging"
	"adgen/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGenSvc struct {
	userID uint
	cost   int
	params service.GenerateParams
	err    error
}

func (f *fakeGenSvc) ChargeAndGenerate(_ context.Context, userID uint, cost int, p service.GenerateParams) (string, error) {
	f.userID, f.cost, f.params = userID, cost, p
	if f.err != nil {
		return "", f.err
	}
	return "asset-1", nil
}

// withUser stands in for AuthRequired.
func withUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != 0 {
			c.Set("user_id", id)
		}
		c.Next()
	}
}

func newGenerateRouter(svc Generator, userID uint) *gin.Engine {
	h := NewGenerateHandler(svc, config.TokensConfig{PhotoCost: 1, VideoCost: 5}, logging.Discard())
	r := gin.New()
	r.POST("/photo", withUser(userID), h.Photo)
	r.POST("/video", withUser(userID), h.Video)
	return r
}

const validBody = `{"prompt":"coffee ad","aspect":"SQUARE","title":"Latte","templateConfig":{"headline":"Fresh","cta":"Order"}}`

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGenerateSuccess(t *testing.T) {
	svc := &fakeGenSvc{}
	r := newGenerateRouter(svc, 3)

	w := post(r, "/video", validBody)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"assetId":"asset-1"}`, w.Body.String())
	assert.Equal(t, uint(3), svc.userID)
	assert.Equal(t, 5, svc.cost)
	assert.Equal(t, domain.AssetKindVideo, svc.params.Kind)
	assert.Equal(t, "Fresh", svc.params.TemplateConfig.Headline)
	assert.Equal(t, "Order", svc.params.TemplateConfig.CTA)

	w = post(r, "/photo", validBody)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, svc.cost)
	assert.Equal(t, domain.AssetKindPhoto, svc.params.Kind)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	svc := &fakeGenSvc{}
	r := newGenerateRouter(svc, 3)
	for _, body := range []string{
		`{`,
		`{"aspect":"SQUARE"}`,
		`{"prompt":"x","aspect":"PORTRAIT"}`,
	} {
		w := post(r, "/photo", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Contains(t, w.Body.String(), "Invalid input data")
	}
	assert.Zero(t, svc.userID, "service must not be called")
}

func TestGenerateRequiresUser(t *testing.T) {
	w := post(newGenerateRouter(&fakeGenSvc{}, 0), "/photo", validBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Not authenticated")
}

func TestGenerateErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{service.ErrInsufficientTokens, http.StatusPaymentRequired, "Insufficient tokens"},
		{fmt.Errorf("%w: provider down", service.ErrGenerationFailed), http.StatusBadGateway, "Generation failed. Tokens have been refunded."},
		{fmt.Errorf("%w: disk", service.ErrRefundFailed), http.StatusInternalServerError, "refund is delayed"},
		{fmt.Errorf("%w: db", service.ErrLedgerWriteFailed), http.StatusServiceUnavailable, "Could not reserve tokens"},
		{errors.New("boom"), http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tc := range cases {
		w := post(newGenerateRouter(&fakeGenSvc{err: tc.err}, 3), "/photo", validBody)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		var body struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Contains(t, body.Error, tc.msg)
	}
}
