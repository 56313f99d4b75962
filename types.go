package fastauth

import (
	"context"
	"time"
)

// PrincipalRecord is the credential record returned by [PrincipalProvider].
// The core reads it and never mutates it except through
// [PrincipalProvider.UpdateCredentialHash] on an opt-in hash upgrade.
type PrincipalRecord struct {
	PrincipalID    string
	CredentialHash string
	Disabled       bool
}

// CreatePrincipalInput is the input for [PrincipalProvider.CreatePrincipal].
// CredentialHash is already hashed; the plaintext secret never crosses this
// interface.
type CreatePrincipalInput struct {
	PrincipalID    string
	CredentialHash string
}

// PrincipalProvider is the interface callers implement to connect fastauth
// to their principal database. Lookup misses must return
// [ErrPrincipalNotFound]; duplicate creation must return [ErrAccountExists].
type PrincipalProvider interface {
	GetPrincipal(ctx context.Context, principalID string) (PrincipalRecord, error)
	CreatePrincipal(ctx context.Context, input CreatePrincipalInput) (PrincipalRecord, error)
	UpdateCredentialHash(ctx context.Context, principalID, newHash string) error
}

// TokenPair is returned by [Engine.Login], [Engine.Refresh], and
// auto-login [Engine.CreatePrincipal].
type TokenPair struct {
	AccessToken  string
	RefreshToken string

	AccessTokenID  string
	RefreshTokenID string

	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Claims is the introspection view of a validated access token.
type Claims struct {
	PrincipalID string
	TokenID     string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// CreatePrincipalRequest is the input for [Engine.CreatePrincipal].
type CreatePrincipalRequest struct {
	PrincipalID string
	Secret      string
	AutoLogin   bool
}

// CreatePrincipalResult carries the created record and, when auto-login was
// requested and enabled, an initial token pair.
type CreatePrincipalResult struct {
	Principal PrincipalRecord
	Tokens    *TokenPair
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	StoreAvailable bool
	StoreLatency   time.Duration
}
