package app

import "imaginarium/src/repository"

const (
	ProviderPassword = "password"
	ProviderOIDC     = "oidc"
)

// User represents a signed-in identity. Galleries, storage settings and theme are keyed by ID.
type User struct {
	// Unique user ID in your application.
	ID string `json:"id"`

	// User's email address.
	Email string `json:"email"`

	// User's display name.
	Name string `json:"name,omitempty"`

	Picture string `json:"picture,omitempty"`

	// Password accounts must verify their email before the first sign-in.
	EmailVerified bool `json:"emailVerified"`

	// Strategy that created the identity, "password" or "oidc".
	Provider string `json:"provider"`
}

// AuthState is what protected pages read: the current identity, if any, and
// whether it is still being resolved.
type AuthState struct {
	User    *User `json:"user"`
	Loading bool  `json:"loading"`
}

func userFromRecord(r repository.UserRecord) User {
	return User{
		ID:            r.ID,
		Email:         r.Email,
		Name:          r.Name,
		Picture:       r.Picture,
		EmailVerified: r.EmailVerified,
		Provider:      r.Provider,
	}
}
