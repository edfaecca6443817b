package aigen

import (
	"context"
	"fmt"
	"net/url"
)

// StubProvider returns placeholder media for local development; no provider key needed.
type StubProvider struct{}

func (StubProvider) Generate(ctx context.Context, req Request) (*Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := req.TemplateConfig.Headline
	if text == "" {
		text = req.Kind
	}
	return &Media{
		SourceURL: fmt.Sprintf("https://placehold.co/%dx%d.png?text=%s", req.Width, req.Height, url.QueryEscape(text)),
	}, nil
}
