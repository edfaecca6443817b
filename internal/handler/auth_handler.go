package handler

import (
	"errors"
	"net/http"

	"adgen/internal/auth"
	"adgen/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	svc *service.AuthService
	log *logrus.Entry
}

func NewAuthHandler(svc *service.AuthService, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=128"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input data")
		return
	}
	u, pair, err := h.svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			fail(c, http.StatusConflict, err.Error())
			return
		}
		h.log.WithError(err).Error("register failed")
		fail(c, http.StatusInternalServerError, "registration failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input data")
		return
	}
	u, pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCreds) {
			fail(c, http.StatusUnauthorized, err.Error())
			return
		}
		h.log.WithError(err).Error("login failed")
		fail(c, http.StatusInternalServerError, "login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input data")
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			h.log.WithError(err).Error("refresh failed")
		}
		fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}
