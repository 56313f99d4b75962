package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind defines a public type used by fastauth APIs.
//
// Kind instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Kind string

const (
	// KindAccess is an exported constant or variable used by the authentication engine.
	KindAccess Kind = "access"
	// KindRefresh is an exported constant or variable used by the authentication engine.
	KindRefresh Kind = "refresh"
)

var (
	// ErrNoActiveSigningKey is an exported constant or variable used by the authentication engine.
	ErrNoActiveSigningKey = errors.New("no active signing key")
	// ErrUnknownKeyID is an exported constant or variable used by the authentication engine.
	ErrUnknownKeyID = errors.New("unknown kid")
	// ErrKeyOutsideValidity is an exported constant or variable used by the authentication engine.
	ErrKeyOutsideValidity = errors.New("kid outside validity window")
	// ErrKindMismatch is an exported constant or variable used by the authentication engine.
	ErrKindMismatch = errors.New("token kind mismatch")
	// ErrTokenExpired is an exported constant or variable used by the authentication engine.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is an exported constant or variable used by the authentication engine.
	ErrTokenMalformed = errors.New("token malformed")
)

// Config defines a public type used by fastauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	Keys          []Key
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	Now           func() time.Time
}

// Manager defines a public type used by fastauth APIs.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

// Claims is the decoded claim set of a fastauth token. TokenID (jti) is
// unique per issuance; ParentID (pjti) is set on refresh tokens minted by a
// rotation and names the refresh token they replaced.
type Claims struct {
	Kind     Kind   `json:"kind"`
	ParentID string `json:"pjti,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalID returns the subject claim.
func (c *Claims) PrincipalID() string {
	return c.Subject
}

// TokenID returns the jti claim.
func (c *Claims) TokenID() string {
	return c.ID
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when input validation, dependency calls, or security checks fail.
// NewManager does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must be >= access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodEd25519
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := validateKeys(cfg.SigningMethod, cfg.Keys); err != nil {
		return nil, err
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the configured lifetime for the given token kind.
func (m *Manager) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return m.config.RefreshTTL
	}
	return m.config.AccessTTL
}

// Issue describes the issue operation and its observable behavior.
//
// Issue may return an error when input validation, dependency calls, or security checks fail.
// Issue does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Issue(principalID string, kind Kind, parentID string) (string, *Claims, error) {
	if principalID == "" {
		return "", nil, errors.New("empty principal id")
	}
	if kind != KindAccess && kind != KindRefresh {
		return "", nil, ErrKindMismatch
	}

	now := m.config.Now()
	claims := &Claims{
		Kind:     kind,
		ParentID: parentID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.TTL(kind))),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	key, err := m.signingKey(now)
	if err != nil {
		return "", nil, err
	}

	tok := jwt.NewWithClaims(m.jwtMethod(), claims)
	tok.Header["kid"] = key.ID

	material, err := m.signMaterial(key)
	if err != nil {
		return "", nil, err
	}

	signed, err := tok.SignedString(material)
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// Parse describes the parse operation and its observable behavior.
//
// Parse may return an error when input validation, dependency calls, or security checks fail.
// Parse does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Manager) Parse(tokenStr string, want Kind) (*Claims, error) {
	now := m.config.Now()

	// exp is validated strictly: a token past its expires-at is rejected no
	// matter the configured leeway. Leeway only widens the future-iat guard
	// below, covering issuer/verifier clock drift on freshly minted tokens.
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.jwtMethod().Alg()}),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.jwtMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return m.verifyKeyByID(kid, now)
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, ErrUnknownKeyID), errors.Is(err, ErrKeyOutsideValidity):
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.ID == "" || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	if claims.Kind != want {
		return nil, ErrKindMismatch
	}
	if claims.IssuedAt != nil && m.config.MaxFutureIAT > 0 {
		if claims.IssuedAt.Time.After(now.Add(m.config.MaxFutureIAT + m.config.Leeway)) {
			return nil, fmt.Errorf("%w: iat too far in the future", ErrTokenMalformed)
		}
	}

	return claims, nil
}
