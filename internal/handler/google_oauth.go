package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"adgen/config"
	"adgen/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	oauthStateCookie   = "oauth_state"
)

type GoogleOAuthHandler struct {
	cfg     *config.Config
	authSvc *service.AuthService
	log     *logrus.Entry
	// overridable in tests
	tokenInfoURL string
}

func NewGoogleOAuthHandler(cfg *config.Config, authSvc *service.AuthService, log *logrus.Entry) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{cfg: cfg, authSvc: authSvc, log: log, tokenInfoURL: googleTokenInfoURL}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.OAuth.GoogleClientID == "" {
		fail(c, http.StatusServiceUnavailable, "Google OAuth not configured")
		return false
	}
	return true
}

// Redirect sends the user to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cfg.IsProduction(), true)
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// Callback exchanges the code, fetches the Google profile and signs the user in.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		fail(c, http.StatusBadRequest, "invalid oauth state")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
	code := c.Query("code")
	if code == "" {
		fail(c, http.StatusBadRequest, "missing code")
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		h.log.WithError(err).Warn("google code exchange")
		fail(c, http.StatusBadRequest, "exchange failed")
		return
	}
	var info service.GoogleProfile
	if err := getJSON(ctx, conf.Client(ctx, tok), googleUserInfoURL, &info); err != nil {
		h.log.WithError(err).Error("google userinfo")
		fail(c, http.StatusBadGateway, "failed to get user info")
		return
	}
	h.signIn(c, info)
}

// Token accepts a Google ID token obtained by a native client.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input data")
		return
	}
	var info struct {
		Sub     string `json:"sub"`
		Aud     string `json:"aud"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	endpoint := h.tokenInfoURL + "?id_token=" + url.QueryEscape(req.IDToken)
	if err := getJSON(c.Request.Context(), http.DefaultClient, endpoint, &info); err != nil {
		fail(c, http.StatusUnauthorized, "invalid id_token")
		return
	}
	if info.Sub == "" || info.Email == "" || info.Aud != h.cfg.OAuth.GoogleClientID {
		fail(c, http.StatusUnauthorized, "invalid id_token")
		return
	}
	h.signIn(c, service.GoogleProfile{ID: info.Sub, Email: info.Email, Name: info.Name, Picture: info.Picture})
}

func (h *GoogleOAuthHandler) signIn(c *gin.Context, p service.GoogleProfile) {
	u, pair, isNew, err := h.authSvc.LoginWithGoogle(c.Request.Context(), p)
	if err != nil {
		h.log.WithError(err).Error("google login")
		fail(c, http.StatusInternalServerError, "login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          u,
		"is_new":        isNew,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", req.URL.Host, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
