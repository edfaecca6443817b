package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"adgen/internal/middleware"
	"adgen/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 200
)

type AccountHandler struct {
	userRepo   *repository.UserRepository
	ledgerRepo *repository.LedgerRepository
	assetRepo  *repository.AssetRepository
	log        *logrus.Entry
}

func NewAccountHandler(
	userRepo *repository.UserRepository,
	ledgerRepo *repository.LedgerRepository,
	assetRepo *repository.AssetRepository,
	log *logrus.Entry,
) *AccountHandler {
	return &AccountHandler{userRepo: userRepo, ledgerRepo: ledgerRepo, assetRepo: assetRepo, log: log}
}

// Me returns the profile with the current token balance.
func (h *AccountHandler) Me(c *gin.Context) {
	u, err := h.userRepo.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "user not found")
			return
		}
		h.log.WithError(err).Error("load profile")
		fail(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": u})
}

type BrandRequest struct {
	Name   string   `json:"name" binding:"max=128"`
	Colors []string `json:"colors" binding:"max=8,dive,hexcolor"`
	Logo   string   `json:"logo" binding:"omitempty,url,max=512"`
}

func (h *AccountHandler) UpdateBrand(c *gin.Context) {
	var req BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid input data")
		return
	}
	if req.Colors == nil {
		req.Colors = []string{}
	}
	colors, err := json.Marshal(req.Colors)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid input data")
		return
	}
	userID := middleware.GetUserID(c)
	if err := h.userRepo.UpdateBrand(c.Request.Context(), userID, req.Name, datatypes.JSON(colors), req.Logo); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("update brand")
		fail(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "brand": req})
}

func (h *AccountHandler) Ledger(c *gin.Context) {
	limit := defaultLedgerLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fail(c, http.StatusBadRequest, "Invalid input data")
			return
		}
		limit = n
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	entries, err := h.ledgerRepo.ListByUser(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		h.log.WithError(err).Error("list ledger")
		fail(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "entries": entries})
}

// Asset returns one of the caller's assets; other users' assets are reported as missing.
func (h *AccountHandler) Asset(c *gin.Context) {
	a, err := h.assetRepo.GetForUser(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "asset not found")
			return
		}
		h.log.WithError(err).Error("load asset")
		fail(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "asset": a})
}

func (h *AccountHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	balance, err := h.userRepo.TokenBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			fail(c, http.StatusNotFound, "user not found")
			return
		}
		h.log.WithError(err).Error("dashboard balance")
		fail(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	stats, err := h.assetRepo.StatsForUser(ctx, userID, time.Now())
	if err != nil {
		h.log.WithError(err).Error("dashboard stats")
		fail(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats, "tokens": balance})
}
