package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	app "imaginarium/src/app"
)

type (
	GalleryHandler struct {
		workspaces *app.Workspaces
		aiTimeout  time.Duration
		log        zerolog.Logger
	}

	PromptBody struct {
		Prompt string `json:"prompt"`
	}

	SuggestionBody struct {
		Suggestion string `json:"suggestion" binding:"required"`
	}

	RenameBody struct {
		Name string `json:"name"`
	}
)

func NewGalleryHandler(workspaces *app.Workspaces, aiTimeout time.Duration, log zerolog.Logger) *GalleryHandler {
	return &GalleryHandler{
		workspaces: workspaces,
		aiTimeout:  aiTimeout,
		log:        log.With().Str("component", "gallery-handler").Logger(),
	}
}

func (g *GalleryHandler) workspace(c *gin.Context) (*app.Workspace, bool) {
	ws, err := g.workspaces.For(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		g.log.Error().Err(err).Msg("can not load workspace")
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "error", "error": "can not load gallery"})
		return nil, false
	}
	return ws, true
}

func respondWorkspace(c *gin.Context, code int, ws *app.Workspace, notices []app.Notice) {
	if notices == nil {
		notices = []app.Notice{}
	}
	c.JSON(code, gin.H{"status": "success", "payload": ws.Snapshot(), "notices": notices})
}

func notFound(c *gin.Context, id string) {
	c.IndentedJSON(http.StatusNotFound, gin.H{
		"message": "error",
		"error":   fmt.Sprintf("image %s not found", id),
		"notices": []app.Notice{{Title: "Image Not Found", Description: "The requested image could not be found in your gallery.", Destructive: true}},
	})
}

func (g *GalleryHandler) aiContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if g.aiTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), g.aiTimeout)
}

func (g *GalleryHandler) GetGallery(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	respondWorkspace(c, http.StatusOK, ws, nil)
}

func (g *GalleryHandler) SetPrompt(c *gin.Context) {
	var body PromptBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": fmt.Errorf("can not read prompt: %w", err).Error()})
		return
	}
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	ws.SetPrompt(body.Prompt)
	respondWorkspace(c, http.StatusOK, ws, nil)
}

// Generate runs generate-or-update. A body prompt, when given, replaces the working prompt first.
func (g *GalleryHandler) Generate(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	if !applyPrompt(c, ws) {
		return
	}
	kind := "generate"
	if ws.Snapshot().RefinementTarget != nil {
		kind = "refine-image"
	}

	ctx, cancel := g.aiContext(c)
	defer cancel()
	notices, err := ws.GenerateOrUpdate(ctx)
	if errors.Is(err, app.ErrEmptyPrompt) {
		respondWorkspace(c, http.StatusBadRequest, ws, notices)
		return
	}
	generationsTotal.WithLabelValues(kind, status(err == nil)).Inc()
	respondWorkspace(c, http.StatusOK, ws, notices)
}

func (g *GalleryHandler) RefinePrompt(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	if !applyPrompt(c, ws) {
		return
	}

	ctx, cancel := g.aiContext(c)
	defer cancel()
	notices, err := ws.RefinePromptText(ctx)
	if errors.Is(err, app.ErrEmptyPrompt) {
		respondWorkspace(c, http.StatusBadRequest, ws, notices)
		return
	}
	generationsTotal.WithLabelValues("refine-prompt", status(err == nil)).Inc()
	respondWorkspace(c, http.StatusOK, ws, notices)
}

func (g *GalleryHandler) SelectSuggestion(c *gin.Context) {
	var body SuggestionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "suggestion is required"})
		return
	}
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	respondWorkspace(c, http.StatusOK, ws, ws.SelectSuggestion(body.Suggestion))
}

func (g *GalleryHandler) StartRefinement(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	id := c.Param("id")
	notices, err := ws.StartImageRefinement(id)
	if err != nil {
		notFound(c, id)
		return
	}
	respondWorkspace(c, http.StatusOK, ws, notices)
}

func (g *GalleryHandler) CancelRefinement(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	respondWorkspace(c, http.StatusOK, ws, ws.CancelImageRefinement())
}

func (g *GalleryHandler) GetImage(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	image, err := ws.Image(c.Param("id"))
	if err != nil {
		notFound(c, c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": image})
}

func (g *GalleryHandler) RenameImage(c *gin.Context) {
	var body RenameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": fmt.Errorf("can not read name: %w", err).Error()})
		return
	}
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	notices, err := ws.Rename(c.Request.Context(), c.Param("id"), body.Name)
	if err != nil {
		notFound(c, c.Param("id"))
		return
	}
	respondWorkspace(c, http.StatusOK, ws, notices)
}

func (g *GalleryHandler) DeleteImage(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	notices, err := ws.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		notFound(c, c.Param("id"))
		return
	}
	respondWorkspace(c, http.StatusOK, ws, notices)
}

// DownloadImage serves the image bytes as <name><ext>. A named image is required.
func (g *GalleryHandler) DownloadImage(c *gin.Context) {
	ws, ok := g.workspace(c)
	if !ok {
		return
	}
	image, err := ws.Image(c.Param("id"))
	if err != nil {
		notFound(c, c.Param("id"))
		return
	}
	if strings.TrimSpace(image.Name) == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{
			"message": "error",
			"error":   "Please set a name for the image on the main page to download.",
			"notices": []app.Notice{{Title: "Filename Missing", Description: "Please set a name for the image on the main page to download.", Destructive: true}},
		})
		return
	}
	if !image.IsDataURI() {
		c.Redirect(http.StatusFound, image.URL)
		return
	}
	data, err := app.ParseImageDataURI(image.URL)
	if err != nil {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{"message": "error", "error": "Image data is not available for download."})
		return
	}
	fileName := app.FileName(image.Name, data.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, data.MimeType, data.Data)
}

// applyPrompt sets the working prompt from {"prompt": "..."} when the request has a
// body. A body that is not valid JSON is answered with 400.
func applyPrompt(c *gin.Context, ws *app.Workspace) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	var body struct {
		Prompt *string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": fmt.Errorf("can not read prompt: %w", err).Error()})
		return false
	}
	if body.Prompt != nil {
		ws.SetPrompt(*body.Prompt)
	}
	return true
}
