// Package ai talks to the generative model used for prompt refinement,
// image generation and image refinement.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"imaginarium/src/app"
	cfg "imaginarium/src/configuration"
)

var ErrGenerationFailed = errors.New("image generation failed or returned no media")

const refinePromptTemplate = `You are an expert prompt engineer specializing in refining prompts for image generation.

Given the original prompt from the user, your task is to:
1. Refine the prompt to be more specific, descriptive, and effective for generating high-quality images.
2. Suggest a list of related prompts that explore different aspects or variations of the original idea.

Original Prompt: %s`

// ContentGenerator is the subset of genai.Models used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	models     ContentGenerator
	textModel  string
	imageModel string
	log        zerolog.Logger
}

// NewGeminiClient opens a Gemini API client with the configured key.
func NewGeminiClient(ctx context.Context, config cfg.AIProperties, log zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, errors.New("AI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return NewClient(client.Models, config.TextModel, config.ImageModel, log), nil
}

func NewClient(models ContentGenerator, textModel, imageModel string, log zerolog.Logger) *Client {
	return &Client{
		models:     models,
		textModel:  textModel,
		imageModel: imageModel,
		log:        log.With().Str("component", "ai-client").Logger(),
	}
}

// RefinePrompt asks the text model for a refined prompt and related suggestions.
func (c *Client) RefinePrompt(ctx context.Context, originalPrompt string) (app.RefinePromptOutput, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"refinedPrompt":    {Type: genai.TypeString},
				"suggestedPrompts": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			},
			Required: []string{"refinedPrompt", "suggestedPrompts"},
		},
	}
	resp, err := c.models.GenerateContent(ctx, c.textModel, genai.Text(fmt.Sprintf(refinePromptTemplate, originalPrompt)), config)
	if err != nil {
		return app.RefinePromptOutput{}, fmt.Errorf("refine prompt: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return app.RefinePromptOutput{}, errors.New("refine prompt: empty response")
	}
	var out app.RefinePromptOutput
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return app.RefinePromptOutput{}, fmt.Errorf("refine prompt: decode output: %w", err)
	}
	if out.SuggestedPrompts == nil {
		out.SuggestedPrompts = []string{}
	}
	return out, nil
}

// GenerateImage returns the first image the model produces for prompt as a data URI.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return c.generateImage(ctx, genai.Text(prompt))
}

// RefineImage sends the source image together with the instruction and returns the new image.
func (c *Client) RefineImage(ctx context.Context, originalImageDataURI, refinementPrompt string) (string, error) {
	source, err := app.ParseImageDataURI(originalImageDataURI)
	if err != nil {
		return "", fmt.Errorf("refine image: %w", err)
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: source.MimeType, Data: source.Data}},
		genai.NewPartFromText(refinementPrompt),
	}
	return c.generateImage(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)})
}

func (c *Client) generateImage(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := c.models.GenerateContent(ctx, c.imageModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	uri, ok := firstMedia(resp)
	if !ok {
		return "", ErrGenerationFailed
	}
	if !strings.HasPrefix(uri, "data:") {
		c.log.Warn().Str("url", uri).Msg("generated media url is not a data URI")
	}
	return uri, nil
}

// firstMedia returns the first inline image as a data URI, or a file URI when the
// model answered with a reference instead of bytes.
func firstMedia(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := strings.TrimSpace(part.InlineData.MIMEType)
				if mime == "" {
					mime = "image/png"
				}
				return app.EncodeDataURI(mime, part.InlineData.Data), true
			}
			if part.FileData != nil && part.FileData.FileURI != "" {
				return part.FileData.FileURI, true
			}
		}
	}
	return "", false
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return ""
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			out.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(out.String())
}
