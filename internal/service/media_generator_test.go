package service

import (
	"context"
	"errors"
	"io"
	"testing"

	"adgen/pkg/aigen"
	"adgen/pkg/cloudinary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerFunc func(ctx context.Context, req aigen.Request) (*aigen.Media, error)

func (f providerFunc) Generate(ctx context.Context, req aigen.Request) (*aigen.Media, error) {
	return f(ctx, req)
}

type fakeCloud struct {
	uploads  []string // resource type per upload
	body     []byte
	folder   string
	deleted  []string
	failWith error
}

func (c *fakeCloud) upload(resource string, file io.Reader, folder, publicID string) (cloudinary.Upload, error) {
	if c.failWith != nil {
		return cloudinary.Upload{}, c.failWith
	}
	c.uploads = append(c.uploads, resource)
	c.body, _ = io.ReadAll(file)
	c.folder = folder
	return cloudinary.Upload{
		URL:          "https://res.test/" + publicID,
		ThumbnailURL: "https://res.test/thumb/" + publicID,
		PublicID:     folder + "/" + publicID,
	}, nil
}

func (c *fakeCloud) UploadImage(_ context.Context, file io.Reader, folder, publicID string) (cloudinary.Upload, error) {
	return c.upload(cloudinary.ResourceImage, file, folder, publicID)
}

func (c *fakeCloud) UploadVideo(_ context.Context, file io.Reader, folder, publicID string) (cloudinary.Upload, error) {
	return c.upload(cloudinary.ResourceVideo, file, folder, publicID)
}

func (c *fakeCloud) Delete(_ context.Context, publicID, resourceType string) error {
	c.deleted = append(c.deleted, resourceType+":"+publicID)
	return nil
}

func TestMediaGenerator_UploadsRawImage(t *testing.T) {
	cloud := &fakeCloud{}
	g := NewMediaGenerator(providerFunc(func(context.Context, aigen.Request) (*aigen.Media, error) {
		return &aigen.Media{Data: []byte("png-bytes"), Ext: "png"}, nil
	}), cloud, "adgen/assets")

	m, err := g.Generate(context.Background(), aigen.Request{Kind: aigen.KindPhoto})
	require.NoError(t, err)
	assert.Equal(t, []string{cloudinary.ResourceImage}, cloud.uploads)
	assert.Equal(t, "png-bytes", string(cloud.body))
	assert.Equal(t, "adgen/assets", cloud.folder)
	assert.Contains(t, m.URL, "https://res.test/photo_")
	assert.Contains(t, m.ThumbURL, "/thumb/")
	assert.Equal(t, cloudinary.ResourceImage, m.ResourceType)

	require.NoError(t, g.Discard(context.Background(), m))
	require.Len(t, cloud.deleted, 1)
	assert.Equal(t, "image:"+m.PublicID, cloud.deleted[0])
}

func TestMediaGenerator_UploadsVideo(t *testing.T) {
	cloud := &fakeCloud{}
	g := NewMediaGenerator(providerFunc(func(context.Context, aigen.Request) (*aigen.Media, error) {
		return &aigen.Media{Data: []byte("mp4"), Ext: "mp4"}, nil
	}), cloud, "f")

	m, err := g.Generate(context.Background(), aigen.Request{Kind: aigen.KindVideo})
	require.NoError(t, err)
	assert.Equal(t, []string{cloudinary.ResourceVideo}, cloud.uploads)
	assert.Equal(t, cloudinary.ResourceVideo, m.ResourceType)
}

func TestMediaGenerator_PassesThroughHostedMedia(t *testing.T) {
	cloud := &fakeCloud{}
	g := NewMediaGenerator(providerFunc(func(context.Context, aigen.Request) (*aigen.Media, error) {
		return &aigen.Media{SourceURL: "https://provider.test/x.png"}, nil
	}), cloud, "f")

	m, err := g.Generate(context.Background(), aigen.Request{Kind: aigen.KindPhoto})
	require.NoError(t, err)
	assert.Equal(t, "https://provider.test/x.png", m.URL)
	assert.Equal(t, "https://provider.test/x.png", m.ThumbURL)
	assert.Empty(t, cloud.uploads)

	require.NoError(t, g.Discard(context.Background(), m))
	assert.Empty(t, cloud.deleted)
}

func TestMediaGenerator_Errors(t *testing.T) {
	raw := providerFunc(func(context.Context, aigen.Request) (*aigen.Media, error) {
		return &aigen.Media{Data: []byte("x")}, nil
	})

	_, err := NewMediaGenerator(raw, nil, "f").Generate(context.Background(), aigen.Request{Kind: aigen.KindPhoto})
	assert.ErrorIs(t, err, ErrNoMediaStore)

	_, err = NewMediaGenerator(raw, &fakeCloud{failWith: errors.New("quota")}, "f").
		Generate(context.Background(), aigen.Request{Kind: aigen.KindPhoto})
	assert.EqualError(t, err, "quota")

	empty := providerFunc(func(context.Context, aigen.Request) (*aigen.Media, error) {
		return &aigen.Media{}, nil
	})
	_, err = NewMediaGenerator(empty, &fakeCloud{}, "f").Generate(context.Background(), aigen.Request{})
	assert.Error(t, err)

	boom := providerFunc(func(context.Context, aigen.Request) (*aigen.Media, error) {
		return nil, aigen.ErrUnsupportedKind
	})
	_, err = NewMediaGenerator(boom, &fakeCloud{}, "f").Generate(context.Background(), aigen.Request{})
	assert.ErrorIs(t, err, aigen.ErrUnsupportedKind)
}
