// Package aigen talks to AI media generation providers.
package aigen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedKind = errors.New("media kind not supported by provider")

const (
	KindPhoto = "PHOTO"
	KindVideo = "VIDEO"
)

// Brand is the account's brand context applied to every generation.
type Brand struct {
	Name   string   `json:"name,omitempty"`
	Colors []string `json:"colors,omitempty"`
	Logo   string   `json:"logo,omitempty"`
}

// TemplateConfig holds the per-template copy fields.
type TemplateConfig struct {
	Headline    string `json:"headline,omitempty"`
	Subheadline string `json:"subheadline,omitempty"`
	Price       string `json:"price,omitempty"`
	CTA         string `json:"cta,omitempty"`
	Description string `json:"description,omitempty"`
}

type Request struct {
	Kind           string
	Prompt         string
	Width          int
	Height         int
	AspectRatio    string // e.g. 1:1, 9:16, 16:9
	TemplateConfig TemplateConfig
	Brand          Brand
}

// Media is either raw bytes (Data + Ext) or a URL the provider already hosts.
type Media struct {
	Data      []byte
	Ext       string
	SourceURL string
}

type Provider interface {
	Generate(ctx context.Context, req Request) (*Media, error)
}

// BuildPrompt merges brand and template copy into the user's prompt.
func BuildPrompt(req Request) string {
	var b strings.Builder
	if req.Kind == KindVideo {
		b.WriteString("You are generating a short branded video advertisement.\n")
	} else {
		b.WriteString("You are generating a branded advertisement image.\n")
	}
	fmt.Fprintf(&b, "Canvas: %dx%d (aspect %s).\n", req.Width, req.Height, req.AspectRatio)

	if brand := brandLines(req.Brand); brand != "" {
		b.WriteString("Follow the brand information below strictly.\n\nBrand information:\n")
		b.WriteString(brand)
		b.WriteString("\n")
	}
	if copyText := templateLines(req.TemplateConfig); copyText != "" {
		b.WriteString("\nAd copy to render:\n")
		b.WriteString(copyText)
		b.WriteString("\n")
	}
	b.WriteString("\nRequest:\n")
	b.WriteString(strings.TrimSpace(req.Prompt))
	return b.String()
}

func brandLines(br Brand) string {
	var lines []string
	if br.Name != "" {
		lines = append(lines, "Name: "+br.Name)
	}
	if len(br.Colors) > 0 {
		lines = append(lines, "Colors: "+strings.Join(br.Colors, ", "))
	}
	if br.Logo != "" {
		lines = append(lines, "Logo: "+br.Logo)
	}
	return strings.Join(lines, "\n")
}

func templateLines(tc TemplateConfig) string {
	var lines []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, label+": "+v)
		}
	}
	add("Headline", tc.Headline)
	add("Subheadline", tc.Subheadline)
	add("Price", tc.Price)
	add("Call to action", tc.CTA)
	add("Description", tc.Description)
	return strings.Join(lines, "\n")
}
