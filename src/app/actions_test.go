package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockModel struct {
	mock.Mock
}

func (m *mockModel) RefinePrompt(ctx context.Context, originalPrompt string) (RefinePromptOutput, error) {
	args := m.Called(ctx, originalPrompt)
	return args.Get(0).(RefinePromptOutput), args.Error(1)
}

func (m *mockModel) GenerateImage(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *mockModel) RefineImage(ctx context.Context, originalImageDataURI, refinementPrompt string) (string, error) {
	args := m.Called(ctx, originalImageDataURI, refinementPrompt)
	return args.String(0), args.Error(1)
}

func newTestStudio(model *mockModel) *Studio {
	studio := NewStudio(model, model, zerolog.Nop())
	studio.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return studio
}

func TestHandleRefinePromptBlank(t *testing.T) {
	model := &mockModel{}
	studio := newTestStudio(model)

	for _, p := range []string{"", "   ", "\t\n"} {
		out := studio.HandleRefinePrompt(t.Context(), p)
		assert.Equal(t, "", out.RefinedPrompt)
		assert.Equal(t, []string{}, out.SuggestedPrompts)
	}
	model.AssertNotCalled(t, "RefinePrompt", mock.Anything, mock.Anything)
}

func TestHandleRefinePrompt(t *testing.T) {
	model := &mockModel{}
	model.On("RefinePrompt", mock.Anything, "fox").
		Return(RefinePromptOutput{RefinedPrompt: "a red fox", SuggestedPrompts: []string{"fox at dawn"}}, nil)

	out := newTestStudio(model).HandleRefinePrompt(t.Context(), "fox")

	assert.Equal(t, "a red fox", out.RefinedPrompt)
	assert.Equal(t, []string{"fox at dawn"}, out.SuggestedPrompts)
}

func TestHandleRefinePromptFailure(t *testing.T) {
	model := &mockModel{}
	model.On("RefinePrompt", mock.Anything, "fox").Return(RefinePromptOutput{}, errors.New("boom"))

	out := newTestStudio(model).HandleRefinePrompt(t.Context(), "fox")

	assert.Equal(t, "Could not refine: fox", out.RefinedPrompt)
	assert.Empty(t, out.SuggestedPrompts)
}

func TestHandleGenerateImage(t *testing.T) {
	model := &mockModel{}
	model.On("GenerateImage", mock.Anything, "a red fox in snow").Return("data:image/png;base64,AA==", nil)

	image, err := newTestStudio(model).HandleGenerateImage(t.Context(), "a red fox in snow")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(image.URL, "data:"))
	assert.Equal(t, "a red fox in snow", image.Prompt)
	assert.Equal(t, "1700000000000-a_red_fox_", image.ID)
	assert.Equal(t, "a red", image.AIHint)
	assert.Equal(t, "", image.Name)
	assert.Contains(t, image.Alt, "a red fox in snow")
}

func TestHandleGenerateImageFailure(t *testing.T) {
	model := &mockModel{}
	model.On("GenerateImage", mock.Anything, "fox").Return("", errors.New("no media"))

	image, err := newTestStudio(model).HandleGenerateImage(t.Context(), "fox")

	require.Error(t, err)
	assert.Equal(t, PlaceholderGenerateURL, image.URL)
	assert.Equal(t, "fox", image.Prompt)
	assert.NotEmpty(t, image.ID)
}

func TestHandleRefineExistingImage(t *testing.T) {
	original := GeneratedImage{ID: "1-fox", URL: "data:image/png;base64,AA==", Prompt: "a red fox in snow", Name: "foxy"}
	model := &mockModel{}
	model.On("RefineImage", mock.Anything, original.URL, "make it night time").Return("data:image/png;base64,BB==", nil)

	image, err := newTestStudio(model).HandleRefineExistingImage(t.Context(), original, "make it night time")

	require.NoError(t, err)
	assert.Equal(t, "1-fox", image.ID)
	assert.Equal(t, "a red fox in snow", image.Prompt)
	assert.Equal(t, "foxy", image.Name)
	assert.Equal(t, "data:image/png;base64,BB==", image.URL)
	assert.Equal(t, "make it", image.AIHint)
}

func TestHandleRefineExistingImageNotDataURI(t *testing.T) {
	model := &mockModel{}
	original := GeneratedImage{ID: "1", URL: "https://example.com/x.png", Prompt: "fox", Name: "n"}

	image, err := newTestStudio(model).HandleRefineExistingImage(t.Context(), original, "brighter")

	assert.ErrorIs(t, err, ErrNotDataURI)
	assert.Equal(t, PlaceholderRefineURL, image.URL)
	assert.Equal(t, "fox", image.Prompt)
	assert.Equal(t, "n", image.Name)
	model.AssertNotCalled(t, "RefineImage", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleRefineExistingImageFailure(t *testing.T) {
	original := GeneratedImage{ID: "1", URL: "data:image/png;base64,AA==", Prompt: "fox", Name: "n"}
	model := &mockModel{}
	model.On("RefineImage", mock.Anything, original.URL, "brighter").Return("", errors.New("boom"))

	image, err := newTestStudio(model).HandleRefineExistingImage(t.Context(), original, "brighter")

	require.Error(t, err)
	assert.Equal(t, PlaceholderRefineURL, image.URL)
	assert.Equal(t, "1", image.ID)
	assert.Equal(t, "fox", image.Prompt)
	assert.Equal(t, "n", image.Name)
}
