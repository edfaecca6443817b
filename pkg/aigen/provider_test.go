package aigen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptIncludesBrandAndCopy(t *testing.T) {
	p := BuildPrompt(Request{
		Kind:        KindPhoto,
		Prompt:      "  sneakers on sand  ",
		Width:       1080,
		Height:      1920,
		AspectRatio: "9:16",
		TemplateConfig: TemplateConfig{
			Headline: "Summer Sale",
			CTA:      "Shop now",
		},
		Brand: Brand{Name: "Acme", Colors: []string{"#ff0000", "#000000"}},
	})

	assert.Contains(t, p, "advertisement image")
	assert.Contains(t, p, "1080x1920 (aspect 9:16)")
	assert.Contains(t, p, "Name: Acme")
	assert.Contains(t, p, "Colors: #ff0000, #000000")
	assert.Contains(t, p, "Headline: Summer Sale")
	assert.Contains(t, p, "Call to action: Shop now")
	assert.NotContains(t, p, "Price:")
	assert.True(t, strings.HasSuffix(p, "sneakers on sand"))
}

func TestBuildPromptWithoutBrand(t *testing.T) {
	p := BuildPrompt(Request{Kind: KindVideo, Prompt: "launch teaser"})
	assert.Contains(t, p, "video advertisement")
	assert.NotContains(t, p, "Brand information")
	assert.NotContains(t, p, "Ad copy")
}
