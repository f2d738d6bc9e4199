package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type (
	// WorkspaceState is a copy of a workspace at one instant.
	WorkspaceState struct {
		Prompt           string              `json:"prompt"`
		Images           []GeneratedImage    `json:"images"`
		Suggestions      *RefinePromptOutput `json:"suggestions,omitempty"`
		RefinementTarget *GeneratedImage     `json:"refinementTarget,omitempty"`
		Busy             bool                `json:"busy"`
	}

	// Workspace is the gallery of one identity together with its working prompt.
	// Generate and refine calls are serialized by op; mu guards the state.
	Workspace struct {
		userID string
		studio *Studio
		store  *GalleryStore
		limit  int
		log    zerolog.Logger

		op sync.Mutex

		// guarded by Workspaces.mu
		lastUsed time.Time

		mu          sync.Mutex
		prompt      string
		images      []GeneratedImage
		suggestions *RefinePromptOutput
		target      *GeneratedImage
		busy        bool
	}

	// Workspaces keeps one Workspace per identity, loaded on first access and
	// dropped by Sweep once idle.
	Workspaces struct {
		studio *Studio
		store  *GalleryStore
		limit  int
		log    zerolog.Logger
		now    func() time.Time

		mu     sync.Mutex
		spaces map[string]*Workspace
	}
)

func NewWorkspaces(studio *Studio, store *GalleryStore, limit int, log zerolog.Logger) *Workspaces {
	return &Workspaces{
		studio: studio,
		store:  store,
		limit:  limit,
		log:    log.With().Str("component", "workspace").Logger(),
		now:    time.Now,
		spaces: make(map[string]*Workspace),
	}
}

// For returns the workspace of userID, reading the stored gallery the first time.
func (w *Workspaces) For(ctx context.Context, userID string) (*Workspace, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ws, ok := w.spaces[userID]; ok {
		ws.lastUsed = w.now()
		return ws, nil
	}
	images, err := w.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	ws := &Workspace{
		userID: userID,
		studio: w.studio,
		store:  w.store,
		limit:  w.limit,
		log:    w.log.With().Str("user", userID).Logger(),
		images:   Truncate(images, w.limit),
		lastUsed: w.now(),
	}
	w.spaces[userID] = ws
	return ws, nil
}

// Sweep drops workspaces not handed out for longer than idle. One with a model
// call in flight stays. The stored gallery is untouched.
func (w *Workspaces) Sweep(idle time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-idle)
	dropped := 0
	for userID, ws := range w.spaces {
		if ws.lastUsed.After(cutoff) || !ws.op.TryLock() {
			continue
		}
		delete(w.spaces, userID)
		ws.op.Unlock()
		dropped++
	}
	if dropped > 0 {
		w.log.Debug().Int("dropped", dropped).Int("kept", len(w.spaces)).Msg("idle workspaces swept")
	}
	return dropped
}

func (ws *Workspace) Snapshot() WorkspaceState {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	state := WorkspaceState{
		Prompt: ws.prompt,
		Images: append([]GeneratedImage{}, ws.images...),
		Busy:   ws.busy,
	}
	if ws.suggestions != nil {
		s := *ws.suggestions
		s.SuggestedPrompts = append([]string{}, s.SuggestedPrompts...)
		state.Suggestions = &s
	}
	if ws.target != nil {
		t := *ws.target
		state.RefinementTarget = &t
	}
	return state
}

func (ws *Workspace) Image(id string) (GeneratedImage, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	image, ok := FindByID(ws.images, id)
	if !ok {
		return GeneratedImage{}, ErrNotFound
	}
	return image, nil
}

func (ws *Workspace) SetPrompt(prompt string) {
	ws.mu.Lock()
	ws.prompt = prompt
	ws.mu.Unlock()
}

// GenerateOrUpdate refines the refinement target with the working prompt when one is
// selected and generates a new image otherwise. Model failures still land in the
// gallery as placeholders; the returned error only tells what happened.
func (ws *Workspace) GenerateOrUpdate(ctx context.Context) ([]Notice, error) {
	ws.op.Lock()
	defer ws.op.Unlock()

	ws.mu.Lock()
	prompt := ws.prompt
	if strings.TrimSpace(prompt) == "" {
		ws.mu.Unlock()
		return []Notice{alert("Prompt empty", "Please enter a prompt.")}, ErrEmptyPrompt
	}
	ws.suggestions = nil
	ws.busy = true
	var target *GeneratedImage
	if ws.target != nil {
		t := *ws.target
		target = &t
	}
	ws.mu.Unlock()

	defer func() {
		ws.mu.Lock()
		ws.busy = false
		ws.mu.Unlock()
	}()

	if target != nil {
		return ws.updateImage(ctx, *target, prompt)
	}
	return ws.generateImage(ctx, prompt)
}

func (ws *Workspace) generateImage(ctx context.Context, prompt string) ([]Notice, error) {
	image, err := ws.studio.HandleGenerateImage(ctx, prompt)

	ws.mu.Lock()
	ws.images = Truncate(Prepend(ws.images, image), ws.limit)
	var notices []Notice
	if err != nil {
		notices = append(notices, alert("Generation Failed", "Something went wrong. Please try again."))
	} else {
		ws.prompt = ""
		notices = append(notices, info("Image Generated!", "Your new image has been added to the gallery."))
	}
	ws.mu.Unlock()

	return append(notices, ws.persist(ctx)...), err
}

func (ws *Workspace) updateImage(ctx context.Context, target GeneratedImage, instruction string) ([]Notice, error) {
	image, err := ws.studio.HandleRefineExistingImage(ctx, target, instruction)

	ws.mu.Lock()
	ws.images = Truncate(ReplaceOrPrepend(ws.images, target.ID, image), ws.limit)
	var notices []Notice
	if err != nil {
		notices = append(notices, alert("Update Failed", "Something went wrong. Please try again."))
	} else {
		ws.target = nil
		ws.prompt = ""
		notices = append(notices, info("Image Updated!", "Your refined image has been updated in the gallery."))
	}
	ws.mu.Unlock()

	return append(notices, ws.persist(ctx)...), err
}

// RefinePromptText asks the text model for a better prompt. Image refinement mode is
// left first since both modes share the prompt field.
func (ws *Workspace) RefinePromptText(ctx context.Context) ([]Notice, error) {
	ws.op.Lock()
	defer ws.op.Unlock()

	ws.mu.Lock()
	prompt := ws.prompt
	if strings.TrimSpace(prompt) == "" {
		ws.mu.Unlock()
		return []Notice{alert("Prompt empty", "Please enter a prompt to refine.")}, ErrEmptyPrompt
	}
	ws.suggestions = nil
	var notices []Notice
	if ws.target != nil {
		ws.target = nil
		notices = append(notices, info("Exited Image Refinement", "Now refining prompt text for a new image."))
	}
	ws.busy = true
	ws.mu.Unlock()

	result := ws.studio.HandleRefinePrompt(ctx, prompt)

	ws.mu.Lock()
	ws.busy = false
	ws.suggestions = &result
	ws.mu.Unlock()

	if result.RefinedPrompt != "" || len(result.SuggestedPrompts) > 0 {
		return append(notices, info("Prompt Text Refined!", "Suggestions are ready for you.")), nil
	}
	return append(notices, info("No Text Refinements", "Could not find specific text refinements for this prompt.")), nil
}

func (ws *Workspace) SelectSuggestion(suggestion string) []Notice {
	ws.mu.Lock()
	ws.prompt = suggestion
	ws.suggestions = nil
	ws.mu.Unlock()
	return []Notice{info("Prompt Updated", "The selected suggestion is now in the prompt box.")}
}

// StartImageRefinement makes the image with id the refinement target.
func (ws *Workspace) StartImageRefinement(id string) ([]Notice, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	image, ok := FindByID(ws.images, id)
	if !ok {
		return nil, ErrNotFound
	}
	ws.prompt = ""
	ws.suggestions = nil
	ws.target = &image

	name := image.Name
	if name == "" {
		name = "this image"
	}
	return []Notice{info("Refining Image", fmt.Sprintf("Enter changes for %q and click 'Update Image'.", name))}, nil
}

func (ws *Workspace) CancelImageRefinement() []Notice {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.target == nil {
		return nil
	}
	ws.target = nil
	ws.prompt = ""
	return []Notice{info("Exited Image Refinement", "Now generating a new image from the prompt.")}
}

func (ws *Workspace) Delete(ctx context.Context, id string) ([]Notice, error) {
	ws.mu.Lock()
	if _, ok := FindByID(ws.images, id); !ok {
		ws.mu.Unlock()
		return nil, ErrNotFound
	}
	ws.images = RemoveByID(ws.images, id)
	var notices []Notice
	if ws.target != nil && ws.target.ID == id {
		ws.target = nil
		ws.prompt = ""
		notices = append(notices, info("Image Deleted", "The image has been removed and refinement mode exited."))
	} else {
		notices = append(notices, info("Image Deleted", "The image has been removed from your gallery."))
	}
	ws.mu.Unlock()

	return append(notices, ws.persist(ctx)...), nil
}

// Rename changes only the name of the image; order and id stay.
func (ws *Workspace) Rename(ctx context.Context, id, name string) ([]Notice, error) {
	ws.mu.Lock()
	images, ok := RenameByID(ws.images, id, name)
	if !ok {
		ws.mu.Unlock()
		return nil, ErrNotFound
	}
	ws.images = images
	if ws.target != nil && ws.target.ID == id {
		ws.target.Name = name
	}
	ws.mu.Unlock()

	return ws.persist(ctx), nil
}

// persist writes the newest images. A quota failure is retried once with only the
// newest image; any other failure is reported as is.
func (ws *Workspace) persist(ctx context.Context) []Notice {
	ws.mu.Lock()
	images := Truncate(ws.images, ws.limit)
	ws.mu.Unlock()

	err := ws.store.Save(ctx, ws.userID, images)
	if err == nil {
		return nil
	}
	ws.log.Error().Err(err).Int("images", len(images)).Msg("error saving images")

	if !errors.Is(err, ErrQuotaExceeded) {
		return []Notice{alert("Storage Error", "An unexpected error occurred while saving images.")}
	}

	notices := []Notice{alert("Local Storage Full", "Could not save all recent images. Trying to save just the latest.")}
	if len(images) > 0 {
		err = ws.store.Save(ctx, ws.userID, images[:1])
	} else {
		err = ws.store.Clear(ctx, ws.userID)
	}
	if err != nil {
		ws.log.Error().Err(err).Msg("failed to save even the latest image after quota error")
		notices = append(notices, alert("Storage Critically Full", "Unable to save any images. Please clear some space."))
	}
	return notices
}
