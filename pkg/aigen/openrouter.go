package aigen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type chatCompletionsRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessage    `json:"messages"`
	Modalities  []string         `json:"modalities"`
	Stream      bool             `json:"stream"`
	ImageConfig *imageConfigBody `json:"image_config,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type imageConfigBody struct {
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

type chatCompletionsResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Choices []struct {
		Message struct {
			Images []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenRouterProvider generates media through OpenRouter's chat completions API.
type OpenRouterProvider struct {
	BaseURL    string
	APIKey     string
	PhotoModel string
	VideoModel string // empty disables video
	HTTPClient *http.Client
}

func NewOpenRouterProvider(baseURL, apiKey, photoModel, videoModel string) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &OpenRouterProvider{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		PhotoModel: photoModel,
		VideoModel: videoModel,
		HTTPClient: &http.Client{},
	}
}

func (p *OpenRouterProvider) Generate(ctx context.Context, req Request) (*Media, error) {
	model := p.PhotoModel
	modalities := []string{"image", "text"}
	if req.Kind == KindVideo {
		if p.VideoModel == "" {
			return nil, ErrUnsupportedKind
		}
		model = p.VideoModel
		modalities = []string{"video", "text"}
	}

	body := chatCompletionsRequest{
		Model:      model,
		Messages:   []chatMessage{{Role: "user", Content: BuildPrompt(req)}},
		Modalities: modalities,
	}
	if req.AspectRatio != "" {
		body.ImageConfig = &imageConfigBody{AspectRatio: req.AspectRatio}
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse response (%d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("api error (%d): %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("api status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	if len(parsed.Choices) == 0 || len(parsed.Choices[0].Message.Images) == 0 {
		return nil, fmt.Errorf("no media returned (%d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	mediaURL := strings.TrimSpace(parsed.Choices[0].Message.Images[0].ImageURL.URL)
	if mediaURL == "" {
		return nil, errors.New("media URL is empty")
	}

	if strings.HasPrefix(mediaURL, "data:") {
		raw, ext, err := decodeDataURL(mediaURL)
		if err != nil {
			return nil, err
		}
		return &Media{Data: raw, Ext: ext}, nil
	}
	raw, ext, err := p.download(ctx, mediaURL)
	if err != nil {
		return nil, fmt.Errorf("download media url: %w", err)
	}
	return &Media{Data: raw, Ext: ext, SourceURL: mediaURL}, nil
}

func (p *OpenRouterProvider) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, extensionFromMIME(resp.Header.Get("Content-Type")), nil
}

func decodeDataURL(dataURL string) ([]byte, string, error) {
	const marker = ";base64,"
	idx := strings.Index(dataURL, marker)
	if idx < 0 {
		return nil, "", errors.New("data URL missing base64 marker")
	}
	meta := strings.TrimPrefix(dataURL[:idx], "data:")
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len(marker):])
	if err != nil {
		return nil, "", fmt.Errorf("decode media base64: %w", err)
	}
	return raw, extensionFromMIME(meta), nil
}

func extensionFromMIME(mt string) string {
	mt = strings.TrimSpace(strings.ToLower(mt))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "":
		return ".png"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	}
	exts, err := mime.ExtensionsByType(mt)
	if err != nil || len(exts) == 0 {
		return ".png"
	}
	return exts[0]
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
