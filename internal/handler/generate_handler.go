package handler

import (
	"context"
	"errors"
	"net/http"

	"adgen/config"
	"adgen/internal/domain"
	"adgen/internal/middleware"
	"adgen/internal/service"
	"adgen/pkg/aigen"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Generator is the part of the generation service the handler needs.
type Generator interface {
	ChargeAndGenerate(ctx context.Context, userID uint, cost int, p service.GenerateParams) (string, error)
}

type GenerateHandler struct {
	svc    Generator
	tokens config.TokensConfig
	log    *logrus.Entry
}

func NewGenerateHandler(svc Generator, tokens config.TokensConfig, log *logrus.Entry) *GenerateHandler {
	return &GenerateHandler{svc: svc, tokens: tokens, log: log}
}

type GenerateRequest struct {
	TemplateID     string               `json:"templateId" binding:"max=64"`
	Title          string               `json:"title" binding:"max=255"`
	Prompt         string               `json:"prompt" binding:"required,max=4000"`
	Aspect         string               `json:"aspect" binding:"required,oneof=SQUARE VERTICAL WIDESCREEN"`
	TemplateConfig aigen.TemplateConfig `json:"templateConfig"`
}

func (h *GenerateHandler) Photo(c *gin.Context) {
	h.generate(c, domain.AssetKindPhoto, h.tokens.PhotoCost)
}

func (h *GenerateHandler) Video(c *gin.Context) {
	h.generate(c, domain.AssetKindVideo, h.tokens.VideoCost)
}

func (h *GenerateHandler) generate(c *gin.Context, kind string, cost int) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		fail(c, http.StatusUnauthorized, service.UserMessage(service.ErrNotAuthenticated))
		return
	}
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, service.UserMessage(service.ErrValidationFailed))
		return
	}
	assetID, err := h.svc.ChargeAndGenerate(c.Request.Context(), userID, cost, service.GenerateParams{
		Kind:           kind,
		TemplateID:     req.TemplateID,
		Title:          req.Title,
		Prompt:         req.Prompt,
		Aspect:         req.Aspect,
		TemplateConfig: req.TemplateConfig,
	})
	if err != nil {
		status := generationStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.WithError(err).WithFields(logrus.Fields{"user_id": userID, "kind": kind}).Warn("generation request failed")
		}
		fail(c, status, service.UserMessage(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "assetId": assetID})
}

func generationStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientTokens):
		return http.StatusPaymentRequired
	case errors.Is(err, service.ErrLedgerWriteFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrRefundFailed):
		return http.StatusInternalServerError
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
