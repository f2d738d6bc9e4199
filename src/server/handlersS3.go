package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	app "imaginarium/src/app"
)

type (
	AppHandler struct {
		configs    *app.S3ConfigStore
		uploader   *app.Uploader
		workspaces *app.Workspaces
		log        zerolog.Logger
	}

	S3ConfigResponse struct {
		Config   *app.S3Config `json:"config"`
		Complete bool          `json:"complete"`
	}
)

func NewS3Handler(configs *app.S3ConfigStore, uploader *app.Uploader, workspaces *app.Workspaces, log zerolog.Logger) *AppHandler {
	return &AppHandler{
		configs:    configs,
		uploader:   uploader,
		workspaces: workspaces,
		log:        log.With().Str("component", "s3-handler").Logger(),
	}
}

func (a *AppHandler) GetConfig(c *gin.Context) {
	config, err := a.configs.Load(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Errorf("can not load s3 settings: %w", err).Error()})
		return
	}
	resp := S3ConfigResponse{Config: config}
	if config != nil {
		resp.Complete = config.Complete()
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": resp})
}

func (a *AppHandler) PutConfig(c *gin.Context) {
	var body app.S3Config
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": fmt.Errorf("can not read s3 settings: %w", err).Error()})
		return
	}
	config := body.Trimmed()
	if err := config.Validate(); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{
			"message": "error",
			"error":   err.Error(),
			"notices": []app.Notice{{Title: "Error Saving Settings", Description: "URL, Access Key, Secret Key and Bucket Name are required.", Destructive: true}},
		})
		return
	}
	if err := a.configs.Save(c.Request.Context(), currentUser(c).ID, config); err != nil {
		a.log.Error().Err(err).Msg("can not save s3 settings")
		c.IndentedJSON(http.StatusInternalServerError, gin.H{
			"message": "error",
			"error":   "Could not save S3 settings.",
			"notices": []app.Notice{{Title: "Error Saving Settings", Description: "Could not save S3 settings.", Destructive: true}},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"payload": S3ConfigResponse{Config: &config, Complete: true},
		"notices": []app.Notice{{Title: "Settings Saved", Description: "Your S3 settings have been saved."}},
	})
}

func (a *AppHandler) DeleteConfig(c *gin.Context) {
	if err := a.configs.Delete(c.Request.Context(), currentUser(c).ID); err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Errorf("can not reset s3 settings: %w", err).Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"notices": []app.Notice{{Title: "Settings Reset", Description: "S3 settings have been cleared."}},
	})
}

// UploadImage puts a gallery image into the bucket from the stored settings.
func (a *AppHandler) UploadImage(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)

	ws, err := a.workspaces.For(ctx, user.ID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "error", "error": "can not load gallery"})
		return
	}
	image, err := ws.Image(c.Param("id"))
	if err != nil {
		notFound(c, c.Param("id"))
		return
	}
	config, err := a.configs.Load(ctx, user.ID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError,
			gin.H{"message": "error", "error": fmt.Errorf("can not load s3 settings: %w", err).Error()})
		return
	}

	result := a.uploader.Upload(ctx, image, config)
	uploadsTotal.WithLabelValues(status(result.Success)).Inc()
	if !result.Success {
		c.IndentedJSON(http.StatusUnprocessableEntity, gin.H{
			"message": "error",
			"error":   result.Message,
			"payload": result,
			"notices": []app.Notice{{Title: "Upload Failed", Description: result.Message, Destructive: true}},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"payload": result,
		"notices": []app.Notice{{Title: "Upload Successful", Description: result.Message}},
	})
}
