package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrUserExists = errors.New("user already exists")

// UserRecord is the stored form of an identity.
type UserRecord struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	PasswordHash  []byte `json:"passwordHash,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
	Provider      string `json:"provider"`
}

type UserRepository struct {
	kv KeyValueStore
}

func NewUserRepository(kv KeyValueStore) *UserRepository {
	return &UserRepository{kv: kv}
}

func emailKey(email string) string { return "user:" + strings.ToLower(strings.TrimSpace(email)) }

func idKey(id string) string { return "user-id:" + id }

// Create stores a new record; the email must be unused.
func (u *UserRepository) Create(ctx context.Context, user UserRecord) error {
	if _, err := u.kv.Get(ctx, emailKey(user.Email)); err == nil {
		return ErrUserExists
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return u.Save(ctx, user)
}

// Save upserts the record under both its email and id.
func (u *UserRepository) Save(ctx context.Context, user UserRecord) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("can not marshal user: %w", err)
	}
	if err := u.kv.Set(ctx, emailKey(user.Email), string(raw), 0); err != nil {
		return err
	}
	return u.kv.Set(ctx, idKey(user.ID), string(raw), 0)
}

func (u *UserRepository) ByEmail(ctx context.Context, email string) (UserRecord, error) {
	return u.load(ctx, emailKey(email))
}

func (u *UserRepository) ByID(ctx context.Context, id string) (UserRecord, error) {
	return u.load(ctx, idKey(id))
}

func (u *UserRepository) load(ctx context.Context, key string) (UserRecord, error) {
	raw, err := u.kv.Get(ctx, key)
	if err != nil {
		return UserRecord{}, err
	}
	var user UserRecord
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return UserRecord{}, fmt.Errorf("can not unmarshal user %s: %w", key, err)
	}
	return user, nil
}
