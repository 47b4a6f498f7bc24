// Package image talks to the Gemini image model that composes the reunion photo.
package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"merabuchpan/internal/domain"
)

// ContentGenerator is the subset of *genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions controls how the generator is configured.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zerolog.Logger

	// Models replaces the SDK client. Tests use it to avoid the network.
	Models ContentGenerator
}

// GeminiReunion merges a childhood and a recent photo into one image.
type GeminiReunion struct {
	models  ContentGenerator
	model   string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewGeminiReunion builds the generator. Without opts.Models a genai client
// is created for the Gemini API backend, which requires an API key.
func NewGeminiReunion(ctx context.Context, opts GeminiOptions) (*GeminiReunion, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	models := opts.Models
	if models == nil {
		apiKey := strings.TrimSpace(opts.APIKey)
		if apiKey == "" {
			return nil, errors.New("gemini api key is required")
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      apiKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  opts.HTTPClient,
			HTTPOptions: genai.HTTPOptions{BaseURL: strings.TrimSpace(opts.BaseURL)},
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		models = client.Models
	}

	return &GeminiReunion{
		models:  models,
		model:   model,
		timeout: opts.Timeout,
		logger:  logger.With().Str("provider", "gemini").Str("model", model).Logger(),
	}, nil
}

// Model returns the configured model identifier.
func (g *GeminiReunion) Model() string {
	return g.model
}

// Generate sends the child photo, the adult photo and ReunionPrompt, in that
// order, and returns the first inline image of the response as base64 along
// with its MIME type. Every failure is reported as a *domain.GenerationError.
func (g *GeminiReunion) Generate(ctx context.Context, child, adult domain.Photo) (domain.GeneratedImage, error) {
	childPart, err := imagePart(child)
	if err != nil {
		return domain.GeneratedImage{}, domain.NewGenerationError(fmt.Errorf("child photo: %w", err))
	}
	adultPart, err := imagePart(adult)
	if err != nil {
		return domain.GeneratedImage{}, domain.NewGenerationError(fmt.Errorf("adult photo: %w", err))
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{childPart, adultPart, genai.NewPartFromText(ReunionPrompt)}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE"}}

	start := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return domain.GeneratedImage{}, domain.NewGenerationError(fmt.Errorf("generate content: %w", err))
	}

	data, mimeType, err := firstInlineImage(resp)
	if err != nil {
		return domain.GeneratedImage{}, domain.NewGenerationError(err)
	}
	mimeType = resultMIME(mimeType)

	g.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Str("mime", mimeType).
		Int("bytes", len(data)).
		Msg("gemini returned image")

	return domain.GeneratedImage{
		B64:      base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}, nil
}

// resultMIME keeps the media type the model reported when it is an image
// type, dropping parameters. Anything else falls back to PNG.
func resultMIME(raw string) string {
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return domain.ResultMIMEType
	}
	return mt
}

func imagePart(p domain.Photo) (*genai.Part, error) {
	if p.IsZero() {
		return nil, domain.ErrEmptyPhoto
	}
	mt := strings.ToLower(strings.TrimSpace(p.MIMEType))
	if !domain.IsAcceptedMIME(mt) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedImage, p.MIMEType)
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mt, Data: p.Data}}, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) ([]byte, string, error) {
	if resp == nil {
		return nil, "", errors.New("empty response")
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, "", fmt.Errorf("prompt blocked: %s", fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, "", errors.New("response has no candidates")
	}

	var finish genai.FinishReason
	for _, cand := range resp.Candidates {
		if cand == nil {
			continue
		}
		if finish == "" {
			finish = cand.FinishReason
		}
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType, nil
			}
		}
	}
	if finish != "" {
		return nil, "", fmt.Errorf("no image data (finish reason %s)", finish)
	}
	return nil, "", errors.New("no image data")
}
