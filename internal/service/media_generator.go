package service

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"adgen/pkg/aigen"
	"adgen/pkg/cloudinary"

	"github.com/google/uuid"
)

var ErrNoMediaStore = errors.New("provider returned raw media but no media store is configured")

// MediaGenerator runs a provider and hosts its output on Cloudinary.
type MediaGenerator struct {
	provider aigen.Provider
	cloud    cloudinary.Client // nil when uploads are disabled
	folder   string
}

func NewMediaGenerator(provider aigen.Provider, cloud cloudinary.Client, folder string) *MediaGenerator {
	return &MediaGenerator{provider: provider, cloud: cloud, folder: folder}
}

func (g *MediaGenerator) Generate(ctx context.Context, req aigen.Request) (*GeneratedMedia, error) {
	m, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("provider returned no media")
	}
	if len(m.Data) == 0 {
		if m.SourceURL == "" {
			return nil, errors.New("provider returned no media")
		}
		return &GeneratedMedia{URL: m.SourceURL, ThumbURL: m.SourceURL}, nil
	}
	if g.cloud == nil {
		return nil, ErrNoMediaStore
	}

	publicID := strings.ToLower(req.Kind) + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	var (
		up       cloudinary.Upload
		resource string
	)
	if req.Kind == aigen.KindVideo {
		resource = cloudinary.ResourceVideo
		up, err = g.cloud.UploadVideo(ctx, bytes.NewReader(m.Data), g.folder, publicID)
	} else {
		resource = cloudinary.ResourceImage
		up, err = g.cloud.UploadImage(ctx, bytes.NewReader(m.Data), g.folder, publicID)
	}
	if err != nil {
		return nil, err
	}
	thumb := up.ThumbnailURL
	if thumb == "" {
		thumb = up.URL
	}
	return &GeneratedMedia{
		URL:          up.URL,
		ThumbURL:     thumb,
		PublicID:     up.PublicID,
		ResourceType: resource,
	}, nil
}

// Discard deletes uploaded media. Provider-hosted media is left alone.
func (g *MediaGenerator) Discard(ctx context.Context, m *GeneratedMedia) error {
	if m == nil || m.PublicID == "" || g.cloud == nil {
		return nil
	}
	return g.cloud.Delete(ctx, m.PublicID, m.ResourceType)
}
