package cloudinary

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

// Client uploads generated media and returns delivery URLs.
type Client interface {
	UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (Upload, error)
	UploadVideo(ctx context.Context, file io.Reader, folder, publicID string) (Upload, error)
	Delete(ctx context.Context, publicID, resourceType string) error
}

// Upload is the result of a successful upload.
type Upload struct {
	URL          string
	ThumbnailURL string
	PublicID     string
}

const (
	ResourceImage = "image"
	ResourceVideo = "video"
)

const (
	ImageWidth = 1080
	ThumbWidth = 320
)

// Eager transformations for upload (single string per SDK)
const (
	imageEager = "q_auto,f_auto,w_320,c_fill"
	videoEager = "q_auto:low,f_auto,w_1280"
)

var eagerAsyncFalse = false

// BuildOptimizedImageURL returns a Cloudinary URL with transformations for optimized delivery.
func BuildOptimizedImageURL(cloudName, publicID string, width int) string {
	if width <= 0 {
		width = ImageWidth
	}
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,c_fill/%s",
		cloudName, width, publicID)
}

// BuildVideoPosterURL returns the first-frame JPEG of an uploaded video.
func BuildVideoPosterURL(cloudName, publicID string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/video/upload/so_0/%s.jpg", cloudName, publicID)
}

type clientImpl struct {
	cloudName string
	uploader  *uploader.API
}

// UploadImage uploads an image and eagerly renders the library thumbnail.
func (c *clientImpl) UploadImage(ctx context.Context, file io.Reader, folder, publicID string) (Upload, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     folder,
		PublicID:   publicID,
		Eager:      imageEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return Upload{}, err
	}
	if result.Error.Message != "" {
		return Upload{}, fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	up := Upload{URL: result.SecureURL, PublicID: result.PublicID}
	if len(result.Eager) > 0 {
		up.ThumbnailURL = result.Eager[0].SecureURL
	}
	if up.ThumbnailURL == "" {
		up.ThumbnailURL = BuildOptimizedImageURL(c.cloudName, result.PublicID, ThumbWidth)
	}
	return up, nil
}

// UploadVideo uploads a video with eager optimization; the thumbnail is the first frame.
func (c *clientImpl) UploadVideo(ctx context.Context, file io.Reader, folder, publicID string) (Upload, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: ResourceVideo,
		Eager:        videoEager,
		EagerAsync:   &eagerAsyncFalse,
	})
	if err != nil {
		return Upload{}, err
	}
	if result.Error.Message != "" {
		return Upload{}, fmt.Errorf("cloudinary: %s", result.Error.Message)
	}
	return Upload{
		URL:          result.SecureURL,
		ThumbnailURL: BuildVideoPosterURL(c.cloudName, result.PublicID),
		PublicID:     result.PublicID,
	}, nil
}

func (c *clientImpl) Delete(ctx context.Context, publicID, resourceType string) error {
	_, err := c.uploader.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	return err
}

// NewClientFromParams builds a Client from Cloudinary cloud name, API key, and secret.
func NewClientFromParams(cloudName, apiKey, apiSecret string) (Client, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &clientImpl{
		cloudName: cloudName,
		uploader:  up,
	}, nil
}
