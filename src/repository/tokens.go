package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	PurposeSession    = "session"
	PurposeVerify     = "verify"
	PurposeReset      = "reset"
	PurposeOAuthState = "oauth-state"
)

// TokenRepository issues random tokens bound to a subject, such as sessions
// or one-shot verification links.
type TokenRepository struct {
	kv KeyValueStore
}

func NewTokenRepository(kv KeyValueStore) *TokenRepository {
	return &TokenRepository{kv: kv}
}

func tokenKey(purpose, token string) string { return purpose + ":" + token }

func (t *TokenRepository) Issue(ctx context.Context, purpose, subject string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := t.kv.Set(ctx, tokenKey(purpose, token), subject, ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup returns the subject and keeps the token.
func (t *TokenRepository) Lookup(ctx context.Context, purpose, token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}
	return t.kv.Get(ctx, tokenKey(purpose, token))
}

// Consume returns the subject and invalidates the token.
func (t *TokenRepository) Consume(ctx context.Context, purpose, token string) (string, error) {
	if token == "" {
		return "", ErrNotFound
	}
	return t.kv.Take(ctx, tokenKey(purpose, token))
}

func (t *TokenRepository) Revoke(ctx context.Context, purpose, token string) error {
	return t.kv.Delete(ctx, tokenKey(purpose, token))
}
