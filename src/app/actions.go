package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type (
	// RefinePromptOutput is the text model's answer to a refinement request.
	RefinePromptOutput struct {
		RefinedPrompt    string   `json:"refinedPrompt"`
		SuggestedPrompts []string `json:"suggestedPrompts"`
	}

	PromptRefiner interface {
		RefinePrompt(ctx context.Context, originalPrompt string) (RefinePromptOutput, error)
	}

	ImageModel interface {
		GenerateImage(ctx context.Context, prompt string) (string, error)
		RefineImage(ctx context.Context, originalImageDataURI, refinementPrompt string) (string, error)
	}

	// Studio wraps the model calls so that a failure never escapes as an error:
	// prompt refinement degrades to a fixed text, image calls degrade to placeholders.
	Studio struct {
		refiner PromptRefiner
		images  ImageModel
		log     zerolog.Logger
		now     func() time.Time
	}
)

func NewStudio(refiner PromptRefiner, images ImageModel, log zerolog.Logger) *Studio {
	return &Studio{
		refiner: refiner,
		images:  images,
		log:     log.With().Str("component", "studio").Logger(),
		now:     time.Now,
	}
}

func (s *Studio) HandleRefinePrompt(ctx context.Context, originalPrompt string) RefinePromptOutput {
	if strings.TrimSpace(originalPrompt) == "" {
		return RefinePromptOutput{RefinedPrompt: "", SuggestedPrompts: []string{}}
	}
	result, err := s.refiner.RefinePrompt(ctx, originalPrompt)
	if err != nil {
		s.log.Error().Err(err).Msg("error refining prompt")
		return RefinePromptOutput{
			RefinedPrompt:    "Could not refine: " + originalPrompt,
			SuggestedPrompts: []string{},
		}
	}
	if result.SuggestedPrompts == nil {
		result.SuggestedPrompts = []string{}
	}
	return result
}

// HandleGenerateImage always returns an image; on failure its url is a placeholder.
func (s *Studio) HandleGenerateImage(ctx context.Context, prompt string) (GeneratedImage, error) {
	image := GeneratedImage{
		ID:     NewImageID(s.now(), prompt),
		Prompt: prompt,
		AIHint: AIHint(prompt),
	}

	dataURI, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		s.log.Error().Err(err).Str("id", image.ID).Msg("error generating image")
		image.URL = PlaceholderGenerateURL
		image.Alt = fmt.Sprintf("Error generating image for prompt: %s. Placeholder shown.", prompt)
		return image, err
	}
	image.URL = dataURI
	image.Alt = "AI generated image for prompt: " + prompt
	return image, nil
}

// HandleRefineExistingImage applies refinementPrompt to original. The result keeps the
// original's id, prompt and name. A source that is not a data URI is never sent to the model.
func (s *Studio) HandleRefineExistingImage(ctx context.Context, original GeneratedImage, refinementPrompt string) (GeneratedImage, error) {
	image := GeneratedImage{
		ID:     original.ID,
		Prompt: original.Prompt,
		Name:   original.Name,
		AIHint: AIHint(refinementPrompt),
	}
	if image.ID == "" {
		image.ID = NewImageID(s.now(), "refined-"+refinementPrompt)
	}

	if !original.IsDataURI() {
		s.log.Error().Str("id", original.ID).Msg("original image for refinement is not a data URI")
		image.URL = PlaceholderRefineURL
		image.Alt = fmt.Sprintf("Error refining image. Original image was not a data URI. Placeholder shown. Original prompt: '%s'.", original.Prompt)
		return image, ErrNotDataURI
	}

	dataURI, err := s.images.RefineImage(ctx, original.URL, refinementPrompt)
	if err != nil {
		s.log.Error().Err(err).Str("id", original.ID).Msg("error refining image")
		image.URL = PlaceholderRefineURL
		image.Alt = fmt.Sprintf("Error refining image. Original prompt: '%s'. Attempted refinement: '%s'. Placeholder shown.", original.Prompt, refinementPrompt)
		return image, err
	}
	image.URL = dataURI
	image.Alt = fmt.Sprintf("AI-refined image. Original prompt: '%s'. Refinement instructions: '%s'.", original.Prompt, refinementPrompt)
	return image, nil
}
