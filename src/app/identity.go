package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	cfg "imaginarium/src/configuration"
	"imaginarium/src/repository"
)

const minPasswordLength = 6

type (
	Mailer interface {
		Send(ctx context.Context, to, subject, body string) error
	}

	// LogMailer writes outgoing mail to the log instead of delivering it.
	LogMailer struct {
		log zerolog.Logger
	}

	// LocalIdentityProvider keeps email and password identities in the user repository.
	LocalIdentityProvider struct {
		users     *repository.UserRepository
		tokens    *repository.TokenRepository
		mailer    Mailer
		publicURL string
		verifyTTL time.Duration
		resetTTL  time.Duration
		enabled   bool
		cost      int
	}
)

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.log.Info().Str("to", to).Str("subject", subject).Msg(body)
	return nil
}

func NewLocalIdentityProvider(users *repository.UserRepository, tokens *repository.TokenRepository,
	mailer Mailer, config cfg.AuthProperties,
) *LocalIdentityProvider {
	return &LocalIdentityProvider{
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		publicURL: strings.TrimRight(config.PublicURL, "/"),
		verifyTTL: config.VerifyTTL,
		resetTTL:  config.ResetTTL,
		enabled:   config.EmailEnabled,
		cost:      bcrypt.DefaultCost,
	}
}

func (p *LocalIdentityProvider) CreateUser(ctx context.Context, email, password string) (User, error) {
	if !p.enabled {
		return User{}, authError(CodeOperationNotAllowed, nil)
	}
	address, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if len(password) < minPasswordLength {
		return User{}, authError(CodeWeakPassword, nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	record := repository.UserRecord{
		ID:           uuid.NewString(),
		Email:        address,
		PasswordHash: hash,
		Provider:     ProviderPassword,
	}
	if err := p.users.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return User{}, authError(CodeEmailInUse, err)
		}
		return User{}, err
	}
	return userFromRecord(record), nil
}

func (p *LocalIdentityProvider) SignIn(ctx context.Context, email, password string) (User, error) {
	if !p.enabled {
		return User{}, authError(CodeOperationNotAllowed, nil)
	}
	record, err := p.users.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return User{}, authError(CodeUserNotFound, nil)
	}
	if err != nil {
		return User{}, err
	}
	if len(record.PasswordHash) == 0 {
		return User{}, authError(CodeInvalidCredential, errors.New("identity has no password"))
	}
	if err := bcrypt.CompareHashAndPassword(record.PasswordHash, []byte(password)); err != nil {
		return User{}, authError(CodeWrongPassword, nil)
	}
	return userFromRecord(record), nil
}

func (p *LocalIdentityProvider) SendEmailVerification(ctx context.Context, user User) error {
	token, err := p.tokens.Issue(ctx, repository.PurposeVerify, user.ID, p.verifyTTL)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	link := p.link("/auth/verify", token)
	return p.mailer.Send(ctx, user.Email, "Verify your email for Imaginarium",
		"Follow this link to verify your email address: "+link)
}

func (p *LocalIdentityProvider) VerifyEmail(ctx context.Context, token string) (User, error) {
	record, err := p.consume(ctx, repository.PurposeVerify, token)
	if err != nil {
		return User{}, err
	}
	record.EmailVerified = true
	if err := p.users.Save(ctx, record); err != nil {
		return User{}, err
	}
	return userFromRecord(record), nil
}

func (p *LocalIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	record, err := p.users.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return authError(CodeUserNotFound, nil)
	}
	if err != nil {
		return err
	}
	token, err := p.tokens.Issue(ctx, repository.PurposeReset, record.ID, p.resetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	return p.mailer.Send(ctx, record.Email, "Reset your password for Imaginarium",
		"Follow this link to reset your password: "+p.link("/reset-password", token))
}

func (p *LocalIdentityProvider) ConfirmPasswordReset(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLength {
		return authError(CodeWeakPassword, nil)
	}
	record, err := p.consume(ctx, repository.PurposeReset, token)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	record.PasswordHash = hash
	// Following the emailed link proves ownership of the address.
	record.EmailVerified = true
	return p.users.Save(ctx, record)
}

func (p *LocalIdentityProvider) consume(ctx context.Context, purpose, token string) (repository.UserRecord, error) {
	id, err := p.tokens.Consume(ctx, purpose, token)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.UserRecord{}, &AuthError{
			Code:    CodeInvalidActionCode,
			Message: "The link is invalid or has expired.",
		}
	}
	if err != nil {
		return repository.UserRecord{}, err
	}
	return p.users.ByID(ctx, id)
}

func (p *LocalIdentityProvider) link(path, token string) string {
	return p.publicURL + path + "?token=" + url.QueryEscape(token)
}

func normalizeEmail(email string) (string, error) {
	address, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", &AuthError{Code: CodeInvalidEmail, Message: "The email address is badly formatted.", Err: err}
	}
	return strings.ToLower(address.Address), nil
}
