package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adgen/config"
	"adgen/internal/service"
	"adgen/internal/testutil"
	"adgen/internal/ws"
	"adgen/pkg/aigen"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedGenerator struct {
	failNext bool
}

func (g *scriptedGenerator) Generate(_ context.Context, req aigen.Request) (*service.GeneratedMedia, error) {
	if g.failNext {
		g.failNext = false
		return nil, errors.New("provider unavailable")
	}
	return &service.GeneratedMedia{URL: "https://cdn.test/" + req.Kind, ThumbURL: "https://cdn.test/t"}, nil
}

func (g *scriptedGenerator) Discard(context.Context, *service.GeneratedMedia) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test"},
		JWT: config.JWTConfig{
			AccessSecret: "a", RefreshSecret: "r",
			AccessExpiry: time.Minute, RefreshExpiry: time.Hour, Issuer: "test",
		},
		Generation: config.GenerationConfig{Timeout: time.Second},
		Tokens:     config.TokensConfig{PhotoCost: 1, VideoCost: 5, SignupGrant: 10},
		RateLimit:  config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
}

type apiClient struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *apiClient) do(method, path, body string) (int, map[string]interface{}) {
	c.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	out := map[string]interface{}{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func (c *apiClient) tokens() int {
	c.t.Helper()
	code, body := c.do(http.MethodGet, "/api/v1/me", "")
	require.Equal(c.t, http.StatusOK, code)
	return int(body["user"].(map[string]interface{})["tokens"].(float64))
}

func TestGenerationFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	gen := &scriptedGenerator{}
	r := Setup(testConfig(), db, gen, nil, ws.NewAssetHub(), logger)
	api := &apiClient{t: t, h: r}

	code, _ := api.do(http.MethodPost, "/api/v1/generate/photo", `{"prompt":"x","aspect":"SQUARE"}`)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := api.do(http.MethodPost, "/api/v1/auth/register", `{"name":"Ann","email":"ann@test.io","password":"password123"}`)
	require.Equal(t, http.StatusCreated, code)
	api.token = body["access_token"].(string)
	assert.Equal(t, 10, api.tokens())

	code, body = api.do(http.MethodPost, "/api/v1/generate/photo", `{"prompt":"shoes","aspect":"WIDESCREEN","title":"Shoes"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["success"])
	assetID := body["assetId"].(string)
	assert.Equal(t, 9, api.tokens())

	code, body = api.do(http.MethodGet, "/api/v1/me/assets/"+assetID, "")
	require.Equal(t, http.StatusOK, code)
	asset := body["asset"].(map[string]interface{})
	assert.Equal(t, "READY", asset["status"])
	assert.Equal(t, float64(1920), asset["width"])

	gen.failNext = true
	code, body = api.do(http.MethodPost, "/api/v1/generate/video", `{"prompt":"promo","aspect":"VERTICAL"}`)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Generation failed. Tokens have been refunded.", body["error"])
	assert.Equal(t, 9, api.tokens())

	code, _ = api.do(http.MethodPost, "/api/v1/generate/video", `{"prompt":"promo","aspect":"VERTICAL"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 4, api.tokens())

	code, body = api.do(http.MethodPost, "/api/v1/generate/video", `{"prompt":"promo","aspect":"VERTICAL"}`)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "Insufficient tokens", body["error"])
	assert.Equal(t, 4, api.tokens())

	code, body = api.do(http.MethodGet, "/api/v1/me/ledger", "")
	require.Equal(t, http.StatusOK, code)
	// grant, photo debit, video debit, refund, video debit
	assert.Len(t, body["entries"], 5)
}

func TestPublicEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := Setup(testConfig(), testutil.OpenDB(t), &scriptedGenerator{}, nil, ws.NewAssetHub(), logger)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "adgen_http_requests_total")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
