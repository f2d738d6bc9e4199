package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imaginarium/src/repository"
)

// Provider error codes. They keep the names the web client already understands.
const (
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeInvalidCredential   = "auth/invalid-credential"
	CodeEmailInUse          = "auth/email-already-in-use"
	CodeWeakPassword        = "auth/weak-password"
	CodeInvalidEmail        = "auth/invalid-email"
	CodePopupClosed         = "auth/popup-closed-by-user"
	CodeCancelledPopup      = "auth/cancelled-popup-request"
	CodeOperationNotAllowed = "auth/operation-not-allowed"
	CodeInvalidActionCode   = "auth/invalid-action-code"
	CodeAccountExists       = "auth/account-exists-with-different-credential"
)

const oauthStateTTL = 10 * time.Minute

type (
	// AuthError is a failure reported by an identity provider.
	AuthError struct {
		Code    string
		Message string
		Err     error
	}

	// IdentityProvider manages email and password identities.
	IdentityProvider interface {
		CreateUser(ctx context.Context, email, password string) (User, error)
		SignIn(ctx context.Context, email, password string) (User, error)
		SendEmailVerification(ctx context.Context, user User) error
		VerifyEmail(ctx context.Context, token string) (User, error)
		SendPasswordReset(ctx context.Context, email string) error
		ConfirmPasswordReset(ctx context.Context, token, password string) error
	}

	// OAuthIdentity is what a third-party provider tells about the signed-in person.
	OAuthIdentity struct {
		Subject       string
		Email         string
		Name          string
		Picture       string
		EmailVerified bool
	}

	OAuthProvider interface {
		AuthCodeURL(state string) string
		Exchange(ctx context.Context, code string) (OAuthIdentity, error)
	}

	// AuthGate signs identities in and out and resolves session tokens.
	AuthGate struct {
		local      IdentityProvider
		oauth      OAuthProvider
		users      *repository.UserRepository
		tokens     *repository.TokenRepository
		sessionTTL time.Duration
		log        zerolog.Logger
	}
)

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

func authError(code string, err error) *AuthError {
	return &AuthError{Code: code, Err: err}
}

// AuthMessage turns err into the text shown to the user.
func AuthMessage(err error, defaultMessage string) string {
	if errors.Is(err, ErrEmailNotVerified) {
		return "Please verify your email address before signing in. Check your inbox for the verification link."
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		return defaultMessage
	}
	switch authErr.Code {
	case CodeUserNotFound, CodeWrongPassword:
		return "Invalid email or password."
	case CodeInvalidCredential:
		return "Invalid credentials. If you recently signed up, please check your email for a verification link."
	case CodeEmailInUse:
		return "This email is already in use."
	case CodeWeakPassword:
		return "Password is too weak. It should be at least 6 characters."
	case CodePopupClosed:
		return "Sign-in window was closed. Please try again."
	case CodeCancelledPopup:
		return "Sign-in was cancelled. Please try again."
	case CodeOperationNotAllowed:
		return "This sign-in method is not enabled. Please contact support."
	case CodeAccountExists:
		return "An account already exists with this email. Sign in with your password instead."
	default:
		if authErr.Message != "" {
			return authErr.Message
		}
		return defaultMessage
	}
}

// NewAuthGate wires the strategies together. oauth may be nil when no provider is configured.
func NewAuthGate(local IdentityProvider, oauth OAuthProvider, users *repository.UserRepository,
	tokens *repository.TokenRepository, sessionTTL time.Duration, log zerolog.Logger,
) *AuthGate {
	return &AuthGate{
		local:      local,
		oauth:      oauth,
		users:      users,
		tokens:     tokens,
		sessionTTL: sessionTTL,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

func (g *AuthGate) OAuthEnabled() bool { return g.oauth != nil }

// SignUpWithEmail creates the identity and sends the verification link. No session
// is granted; the address must be verified before SignInWithEmail succeeds.
func (g *AuthGate) SignUpWithEmail(ctx context.Context, email, password string) (User, error) {
	user, err := g.local.CreateUser(ctx, email, password)
	if err != nil {
		return User{}, err
	}
	if err := g.local.SendEmailVerification(ctx, user); err != nil {
		return User{}, err
	}
	g.log.Info().Str("user", user.ID).Msg("signed up, verification pending")
	return user, nil
}

// SignInWithEmail returns the identity and a new session token. An unverified
// identity is turned away without a session.
func (g *AuthGate) SignInWithEmail(ctx context.Context, email, password string) (User, string, error) {
	user, err := g.local.SignIn(ctx, email, password)
	if err != nil {
		return User{}, "", err
	}
	if !user.EmailVerified {
		g.log.Warn().Str("user", user.ID).Msg("sign-in refused, email not verified")
		return User{}, "", ErrEmailNotVerified
	}
	session, err := g.tokens.Issue(ctx, repository.PurposeSession, user.ID, g.sessionTTL)
	if err != nil {
		return User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, session, nil
}

// OAuthLoginURL starts the authorization code flow with a fresh one-shot state.
func (g *AuthGate) OAuthLoginURL(ctx context.Context) (string, error) {
	if g.oauth == nil {
		return "", authError(CodeOperationNotAllowed, nil)
	}
	state, err := g.tokens.Issue(ctx, repository.PurposeOAuthState, "pending", oauthStateTTL)
	if err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}
	return g.oauth.AuthCodeURL(state), nil
}

// CompleteOAuth finishes the flow started by OAuthLoginURL. A state is accepted once.
func (g *AuthGate) CompleteOAuth(ctx context.Context, state, code string) (User, string, error) {
	if g.oauth == nil {
		return User{}, "", authError(CodeOperationNotAllowed, nil)
	}
	if _, err := g.tokens.Consume(ctx, repository.PurposeOAuthState, state); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return User{}, "", authError(CodeCancelledPopup, errors.New("unknown oauth state"))
		}
		return User{}, "", err
	}
	if code == "" {
		return User{}, "", authError(CodePopupClosed, errors.New("no authorization code"))
	}

	identity, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return User{}, "", err
	}
	user, err := g.upsertOAuthUser(ctx, identity)
	if err != nil {
		return User{}, "", err
	}
	session, err := g.tokens.Issue(ctx, repository.PurposeSession, user.ID, g.sessionTTL)
	if err != nil {
		return User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, session, nil
}

func (g *AuthGate) upsertOAuthUser(ctx context.Context, identity OAuthIdentity) (User, error) {
	if identity.Email == "" {
		return User{}, &AuthError{Code: CodeInvalidCredential, Message: "The identity provider did not share an email address."}
	}
	record, err := g.users.ByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		record = repository.UserRecord{
			ID:       identity.Subject,
			Email:    identity.Email,
			Provider: ProviderOIDC,
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
	case err != nil:
		return User{}, err
	case !identity.EmailVerified:
		// only a provider-verified address may claim an existing account
		g.log.Warn().Str("user", record.ID).Msg("oauth link refused, provider email not verified")
		return User{}, authError(CodeAccountExists, errors.New("unverified email matches an existing account"))
	case !record.EmailVerified:
		// nobody proved ownership of the address when this password was set
		g.log.Warn().Str("user", record.ID).Msg("dropping password of unverified account on oauth link")
		record.PasswordHash = nil
		record.Provider = ProviderOIDC
	}
	record.Name = identity.Name
	record.Picture = identity.Picture
	record.EmailVerified = record.EmailVerified || identity.EmailVerified
	if err := g.users.Save(ctx, record); err != nil {
		return User{}, fmt.Errorf("save oauth user: %w", err)
	}
	return userFromRecord(record), nil
}

func (g *AuthGate) SignOut(ctx context.Context, session string) error {
	if session == "" {
		return nil
	}
	return g.tokens.Revoke(ctx, repository.PurposeSession, session)
}

// Authenticate resolves a session token to its identity.
func (g *AuthGate) Authenticate(ctx context.Context, session string) (User, error) {
	id, err := g.tokens.Lookup(ctx, repository.PurposeSession, session)
	if errors.Is(err, repository.ErrNotFound) {
		return User{}, ErrUnauthenticated
	}
	if err != nil {
		return User{}, err
	}
	record, err := g.users.ByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return User{}, ErrUnauthenticated
	}
	if err != nil {
		return User{}, err
	}
	return userFromRecord(record), nil
}

// State is the explicit replacement of an ambient "current user" value.
func (g *AuthGate) State(ctx context.Context, session string) AuthState {
	user, err := g.Authenticate(ctx, session)
	if err != nil {
		return AuthState{}
	}
	return AuthState{User: &user}
}

func (g *AuthGate) VerifyEmail(ctx context.Context, token string) (User, error) {
	return g.local.VerifyEmail(ctx, token)
}

func (g *AuthGate) SendPasswordReset(ctx context.Context, email string) error {
	return g.local.SendPasswordReset(ctx, email)
}

func (g *AuthGate) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	return g.local.ConfirmPasswordReset(ctx, token, password)
}
