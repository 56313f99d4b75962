package token

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod defines a public type used by fastauth APIs.
//
// SigningMethod instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SigningMethod string

const (
	// MethodEd25519 is an exported constant or variable used by the authentication engine.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is an exported constant or variable used by the authentication engine.
	MethodHS256 SigningMethod = "hs256"
)

// Key is one entry of the signing keyring: key id, key material, and the
// validity window during which the key may be used for verification.
// A zero NotBefore/NotAfter means unbounded on that side. Private material
// is required only on keys used for issuance.
type Key struct {
	ID        string
	Private   []byte
	Public    []byte
	NotBefore time.Time
	NotAfter  time.Time
}

func (k Key) coversInstant(now time.Time) bool {
	if !k.NotBefore.IsZero() && now.Before(k.NotBefore) {
		return false
	}
	if !k.NotAfter.IsZero() && !now.Before(k.NotAfter) {
		return false
	}
	return true
}

func (k Key) canSign() bool {
	return len(k.Private) > 0
}

func validateKeys(method SigningMethod, keys []Key) error {
	if len(keys) == 0 {
		return errors.New("at least one signing key required")
	}

	seen := make(map[string]struct{}, len(keys))
	signable := false
	for _, key := range keys {
		kid := strings.TrimSpace(key.ID)
		if kid == "" {
			return errors.New("keyring contains empty kid")
		}
		if _, dup := seen[kid]; dup {
			return fmt.Errorf("keyring contains duplicate kid %q", kid)
		}
		seen[kid] = struct{}{}

		switch method {
		case MethodHS256:
			if len(key.Private) == 0 {
				return fmt.Errorf("hs256 key %q requires secret material", kid)
			}
		case MethodEd25519:
			if len(key.Private) > 0 {
				if _, err := parseEdPrivateKey(key.Private); err != nil {
					return fmt.Errorf("invalid ed25519 private key for kid %q: %w", kid, err)
				}
			}
			if len(key.Public) == 0 {
				return fmt.Errorf("ed25519 key %q requires public material", kid)
			}
			if _, err := parseEdPublicKey(key.Public); err != nil {
				return fmt.Errorf("invalid ed25519 public key for kid %q: %w", kid, err)
			}
		default:
			return errors.New("unsupported signing method")
		}

		if key.canSign() {
			signable = true
		}
	}

	if !signable {
		return errors.New("keyring has no key with private material")
	}

	return nil
}

func (m *Manager) jwtMethod() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

// signingKey returns the newest key that is valid now and carries private
// material. Keys are kept in the order the caller supplied (newest first).
func (m *Manager) signingKey(now time.Time) (Key, error) {
	for _, key := range m.config.Keys {
		if key.canSign() && key.coversInstant(now) {
			return key, nil
		}
	}
	return Key{}, ErrNoActiveSigningKey
}

// verifyKeyByID resolves a kid header to verification material, honoring
// each key's validity window so retired keys stop verifying after their
// grace period ends.
func (m *Manager) verifyKeyByID(kid string, now time.Time) (interface{}, error) {
	for _, key := range m.config.Keys {
		if key.ID != kid {
			continue
		}
		if !key.coversInstant(now) {
			return nil, ErrKeyOutsideValidity
		}
		return m.verifyMaterial(key)
	}
	return nil, ErrUnknownKeyID
}

func (m *Manager) verifyMaterial(key Key) (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return key.Private, nil
	default:
		return parseEdPublicKey(key.Public)
	}
}

func (m *Manager) signMaterial(key Key) (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return key.Private, nil
	default:
		return parseEdPrivateKey(key.Private)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
