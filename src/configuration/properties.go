package configuration

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type (
	Properties struct {
		LogLevel string `env:"LOG_LEVEL" envDefault:"DEBUG"`

		Auth      AuthProperties       `envPrefix:"AUTH_"`
		Server    HttpServerProperties `envPrefix:"HTTP_"`
		AI        AIProperties         `envPrefix:"AI_"`
		Store     StoreProperties      `envPrefix:"STORE_"`
		Gallery   GalleryProperties    `envPrefix:"GALLERY_"`
		RateLimit RateLimitProperties  `envPrefix:"RATE_"`
	}

	AuthProperties struct {
		// Host is the OIDC issuer. OAuth sign-in is disabled when empty.
		Host              string        `env:"HOST"`
		ID                string        `env:"ID"`
		Secret            string        `env:"SECRET"`
		Redirect          string        `env:"REDIRECT_URL" envDefault:"http://localhost:8088/auth/oauth/callback"`
		SessionCookieName string        `env:"SESSION_COOKIE" envDefault:"imaginarium_session"`
		CookieDomain      string        `env:"COOKIE_DOMAIN" envDefault:"localhost"`
		SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
		VerifyTTL         time.Duration `env:"VERIFY_TTL" envDefault:"48h"`
		ResetTTL          time.Duration `env:"RESET_TTL" envDefault:"1h"`
		PublicURL         string        `env:"PUBLIC_URL" envDefault:"http://localhost:8088"`
		LoginRedirect     string        `env:"LOGIN_REDIRECT" envDefault:"/"`
		EmailEnabled      bool          `env:"EMAIL_ENABLED" envDefault:"true"`
		// ReadTimeout bounds each call to the OIDC issuer.
		ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	}

	HttpServerProperties struct {
		Name         string        `env:"NAME" envDefault:"imaginarium"`
		Port         string        `env:"PORT" envDefault:"8088"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		AllowOrigins []string      `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
		Pprof        bool          `env:"PPROF" envDefault:"false"`
	}

	AIProperties struct {
		APIKey     string        `env:"API_KEY"`
		TextModel  string        `env:"TEXT_MODEL" envDefault:"gemini-2.0-flash"`
		ImageModel string        `env:"IMAGE_MODEL" envDefault:"gemini-2.0-flash-exp"`
		Timeout    time.Duration `env:"TIMEOUT" envDefault:"120s"`
	}

	StoreProperties struct {
		// Backend is "memory" or "redis".
		Backend       string `env:"BACKEND" envDefault:"memory"`
		RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string `env:"REDIS_PASSWORD"`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
		MaxValueBytes int    `env:"MAX_VALUE_BYTES" envDefault:"5242880"`
	}

	GalleryProperties struct {
		MaxStoredImages int `env:"MAX_STORED_IMAGES" envDefault:"10"`
	}

	RateLimitProperties struct {
		RPS   float64 `env:"RPS" envDefault:"1"`
		Burst int     `env:"BURST" envDefault:"5"`
	}
)

// ReadProperties loads .env files, when present, and parses the environment.
func ReadProperties() *Properties {
	loadEnvFiles()
	config := &Properties{}

	if err := env.Parse(config); err != nil {
		panic(fmt.Errorf("read config error: %w", err))
	}
	if config.Gallery.MaxStoredImages <= 0 {
		config.Gallery.MaxStoredImages = 10
	}
	return config
}

// OAuthEnabled reports whether an OIDC issuer and client are configured.
func (p *Properties) OAuthEnabled() bool {
	return p.Auth.Host != "" && p.Auth.ID != ""
}

func loadEnvFiles() {
	for _, path := range []string{".env", "../.env"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
		}
	}
}
