package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	app "imaginarium/src/app"
)

type (
	ThemeHandler struct {
		themes *app.ThemeStore
	}

	ThemeBody struct {
		Theme string `json:"theme" binding:"required"`
	}
)

func NewThemeHandler(themes *app.ThemeStore) *ThemeHandler {
	return &ThemeHandler{themes: themes}
}

func (t *ThemeHandler) GetTheme(c *gin.Context) {
	theme, err := t.themes.Load(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "error", "error": "can not load theme"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": gin.H{"theme": theme}})
}

func (t *ThemeHandler) PutTheme(c *gin.Context) {
	var body ThemeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "theme is required"})
		return
	}
	theme, ok := app.ParseTheme(body.Theme)
	if !ok {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "theme must be light, dark or system"})
		return
	}
	if err := t.themes.Save(c.Request.Context(), currentUser(c).ID, theme); err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"message": "error", "error": "can not save theme"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": gin.H{"theme": theme}})
}
