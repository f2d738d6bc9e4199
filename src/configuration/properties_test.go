package configuration

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestReadProperties(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config := ReadProperties()

		assert.Equal(t, "8088", config.Server.Port)
		assert.Equal(t, "memory", config.Store.Backend)
		assert.Equal(t, 10, config.Gallery.MaxStoredImages)
		assert.Equal(t, 24*time.Hour, config.Auth.SessionTTL)
		assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowOrigins)
		assert.False(t, config.OAuthEnabled())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("HTTP_PORT", "9999")
		t.Setenv("STORE_BACKEND", "redis")
		t.Setenv("GALLERY_MAX_STORED_IMAGES", "0")
		t.Setenv("AUTH_HOST", "https://issuer.example.com")
		t.Setenv("AUTH_ID", "client")
		t.Setenv("AI_IMAGE_MODEL", "custom-image")

		config := ReadProperties()

		assert.Equal(t, "9999", config.Server.Port)
		assert.Equal(t, "redis", config.Store.Backend)
		assert.Equal(t, 10, config.Gallery.MaxStoredImages)
		assert.Equal(t, "custom-image", config.AI.ImageModel)
		assert.True(t, config.OAuthEnabled())
	})

	t.Run("invalid value panics", func(t *testing.T) {
		t.Setenv("STORE_REDIS_DB", "not-a-number")
		assert.Panics(t, func() { ReadProperties() })
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("loud"))
}
