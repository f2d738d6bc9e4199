package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	app "imaginarium/src/app"
	cfg "imaginarium/src/configuration"
	db "imaginarium/src/repository"
)

type (
	AuthHandler struct {
		gate              *app.AuthGate
		store             db.KeyValueStore
		log               zerolog.Logger
		SessionCookieName string
		CookieDomain      string
		SessionMaxAge     int
		LoginRedirect     string
	}

	CredentialsBody struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	PasswordResetBody struct {
		Email string `json:"email" binding:"required"`
	}

	PasswordResetConfirmBody struct {
		Token    string `json:"token" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
)

func NewAuthHandler(config *cfg.Properties, gate *app.AuthGate, store db.KeyValueStore, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		gate:              gate,
		store:             store,
		log:               log.With().Str("component", "auth-handler").Logger(),
		SessionCookieName: config.Auth.SessionCookieName,
		CookieDomain:      config.Auth.CookieDomain,
		SessionMaxAge:     int(config.Auth.SessionTTL.Seconds()),
		LoginRedirect:     config.Auth.LoginRedirect,
	}
}

func (a *AuthHandler) GetHealth(c *gin.Context) {
	if err := a.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "error", "error": "store is not reachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *AuthHandler) SignUp(c *gin.Context) {
	var body CredentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "email and password are required"})
		return
	}
	user, err := a.gate.SignUpWithEmail(c.Request.Context(), body.Email, body.Password)
	authAttemptsTotal.WithLabelValues("signup", status(err == nil)).Inc()
	if err != nil {
		a.authError(c, err, "Could not sign up with email.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"payload": user,
		"notice": app.Notice{
			Title:       "Sign-up Successful!",
			Description: "A verification email has been sent. Please check your inbox and verify your account before signing in.",
		},
	})
}

func (a *AuthHandler) SignIn(c *gin.Context) {
	var body CredentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "email and password are required"})
		return
	}
	user, session, err := a.gate.SignInWithEmail(c.Request.Context(), body.Email, body.Password)
	authAttemptsTotal.WithLabelValues("password", status(err == nil)).Inc()
	if err != nil {
		a.authError(c, err, "Could not sign in with email.")
		return
	}
	a.setSession(c, session)
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": user})
}

func (a *AuthHandler) VerifyEmail(c *gin.Context) {
	user, err := a.gate.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		a.authError(c, err, "Could not verify email.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": user})
}

func (a *AuthHandler) PasswordReset(c *gin.Context) {
	var body PasswordResetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "email is required"})
		return
	}
	if err := a.gate.SendPasswordReset(c.Request.Context(), body.Email); err != nil {
		a.authError(c, err, "Could not send password reset email.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (a *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var body PasswordResetConfirmBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "error", "error": "token and password are required"})
		return
	}
	if err := a.gate.ConfirmPasswordReset(c.Request.Context(), body.Token, body.Password); err != nil {
		a.authError(c, err, "Could not reset password.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// Login returns the provider URL the browser should open.
func (a *AuthHandler) Login(c *gin.Context) {
	ref, err := a.gate.OAuthLoginURL(c.Request.Context())
	if err != nil {
		a.authError(c, err, "Could not sign in with the identity provider.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ref": ref})
}

func (a *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if c.Query("error") != "" {
		code = ""
	}
	_, session, err := a.gate.CompleteOAuth(c.Request.Context(), c.Query("state"), code)
	authAttemptsTotal.WithLabelValues("oauth", status(err == nil)).Inc()
	if err != nil {
		a.authError(c, err, "Could not sign in with the identity provider.")
		return
	}
	a.setSession(c, session)
	c.Redirect(http.StatusFound, a.LoginRedirect)
}

func (a *AuthHandler) Logout(c *gin.Context) {
	// the workspace stays cached: other sessions of the identity may still use it
	if err := a.gate.SignOut(c.Request.Context(), sessionToken(c, a.SessionCookieName)); err != nil {
		a.authError(c, err, "Could not sign out.")
		return
	}
	c.SetCookie(a.SessionCookieName, "", -1, "/", a.CookieDomain, false, true)
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": gin.H{"redirect": "/login"}})
}

// Account reports the current identity, or none, without rejecting the request.
func (a *AuthHandler) Account(c *gin.Context) {
	state := a.gate.State(c.Request.Context(), sessionToken(c, a.SessionCookieName))
	c.JSON(http.StatusOK, gin.H{"status": "success", "payload": state})
}

func (a *AuthHandler) setSession(c *gin.Context, session string) {
	c.SetCookie(a.SessionCookieName, session, a.SessionMaxAge, "/", a.CookieDomain, false, true)
}

func (a *AuthHandler) authError(c *gin.Context, err error, defaultMessage string) {
	code := http.StatusInternalServerError
	title := "Authentication Error"
	var authErr *app.AuthError
	switch {
	case errors.Is(err, app.ErrEmailNotVerified):
		code = http.StatusForbidden
		title = "Email Not Verified"
	case errors.As(err, &authErr):
		switch authErr.Code {
		case app.CodeUserNotFound, app.CodeWrongPassword, app.CodeInvalidCredential:
			code = http.StatusUnauthorized
		case app.CodeEmailInUse, app.CodeAccountExists:
			code = http.StatusConflict
		case app.CodeOperationNotAllowed:
			code = http.StatusForbidden
		default:
			code = http.StatusBadRequest
		}
	default:
		a.log.Error().Err(err).Msg(defaultMessage)
	}
	message := app.AuthMessage(err, defaultMessage)
	c.IndentedJSON(code, gin.H{
		"message": "error",
		"error":   message,
		"notice":  app.Notice{Title: title, Description: message, Destructive: true},
	})
}
