package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	cfg "imaginarium/src/configuration"
)

// OIDCProvider runs the authorization code flow against an OpenID Connect issuer.
// Calls to the issuer are bounded by AUTH_READ_TIMEOUT.
type OIDCProvider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

func NewOIDCProvider(ctx context.Context, config cfg.AuthProperties) (*OIDCProvider, error) {
	client := &http.Client{Timeout: config.ReadTimeout}
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, client), config.Host)
	if err != nil {
		return nil, fmt.Errorf("error creating OIDC provider: %w", err)
	}
	return &OIDCProvider{
		config: &oauth2.Config{
			ClientID:     config.ID,
			ClientSecret: config.Secret,
			RedirectURL:  config.Redirect,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: config.ID}),
		client:   client,
	}, nil
}

func (o *OIDCProvider) AuthCodeURL(state string) string {
	return o.config.AuthCodeURL(state)
}

// Exchange trades the code for tokens and reads the identity from the verified ID token.
func (o *OIDCProvider) Exchange(ctx context.Context, code string) (OAuthIdentity, error) {
	ctx = oidc.ClientContext(ctx, o.client)
	token, err := o.config.Exchange(ctx, code)
	if err != nil {
		return OAuthIdentity{}, &AuthError{Code: CodeInvalidCredential, Message: "Error getting access token.", Err: err}
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return OAuthIdentity{}, &AuthError{Code: CodeInvalidCredential, Message: "No ID token found.", Err: errors.New("missing id_token")}
	}
	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return OAuthIdentity{}, &AuthError{Code: CodeInvalidCredential, Message: "Error verifying ID token.", Err: err}
	}

	var claims struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Nickname string `json:"nickname"`
		Picture  string `json:"picture"`
		Verified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return OAuthIdentity{}, fmt.Errorf("can not parse claims: %w", err)
	}
	name := claims.Name
	if name == "" {
		name = claims.Nickname
	}
	return OAuthIdentity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		Name:          name,
		Picture:       claims.Picture,
		EmailVerified: claims.Verified,
	}, nil
}
