package handler

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"adgen/internal/middleware"
	"adgen/internal/repository"
	"adgen/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxLogoBytes = 5 << 20

var logoExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".svg": true}

type UploadHandler struct {
	cloud    cloudinary.Client // nil when Cloudinary is not configured
	userRepo *repository.UserRepository
	folder   string
	log      *logrus.Entry
}

func NewUploadHandler(cloud cloudinary.Client, userRepo *repository.UserRepository, folder string, log *logrus.Entry) *UploadHandler {
	return &UploadHandler{cloud: cloud, userRepo: userRepo, folder: folder, log: log}
}

// UploadBrandLogo stores the logo image and sets it as the caller's brand logo.
func (h *UploadHandler) UploadBrandLogo(c *gin.Context) {
	if h.cloud == nil {
		fail(c, http.StatusServiceUnavailable, "uploads not configured")
		return
	}
	userID := middleware.GetUserID(c)
	file, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, "file required")
		return
	}
	if file.Size > maxLogoBytes || !logoExts[strings.ToLower(filepath.Ext(file.Filename))] {
		fail(c, http.StatusBadRequest, "Invalid input data")
		return
	}
	f, err := file.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "could not read file")
		return
	}
	defer f.Close()

	folder := h.folder + "/brand/" + strconv.FormatUint(uint64(userID), 10)
	publicID := "logo_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	up, err := h.cloud.UploadImage(c.Request.Context(), f, folder, publicID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("logo upload")
		fail(c, http.StatusBadGateway, "upload failed")
		return
	}
	if err := h.userRepo.UpdateBrandLogo(c.Request.Context(), userID, up.URL); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("save brand logo")
		_ = h.cloud.Delete(c.Request.Context(), up.PublicID, cloudinary.ResourceImage)
		fail(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": up.URL, "thumbUrl": up.ThumbnailURL})
}
