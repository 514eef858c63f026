package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// KeyResolver authenticates API keys by their HMAC-SHA256 digest.
type KeyResolver struct {
	keys   Repository
	pepper []byte
}

var _ Resolver = (*KeyResolver)(nil)

// NewKeyResolver creates a KeyResolver using the given key repository and
// HMAC pepper.
func NewKeyResolver(keys Repository, pepper []byte) *KeyResolver {
	return &KeyResolver{keys: keys, pepper: pepper}
}

// HashKey returns the hex HMAC-SHA256 digest stored for apiKey.
func HashKey(pepper []byte, apiKey string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(apiKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// Resolve looks the key up by digest and compares the stored digest in
// constant time. Only an unknown or mismatching key is ErrUnauthenticated;
// lookup failures are returned as is.
func (r *KeyResolver) Resolve(ctx context.Context, apiKey string) (Subject, error) {
	if apiKey == "" {
		return Subject{}, ErrUnauthenticated
	}

	mac := hmac.New(sha256.New, r.pepper)
	mac.Write([]byte(apiKey))
	sum := mac.Sum(nil)

	info, err := r.keys.FindByHash(ctx, hex.EncodeToString(sum))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return Subject{}, ErrUnauthenticated
		}
		return Subject{}, errors.Wrap(err, "find api key")
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(sum, stored) != 1 {
		return Subject{}, ErrUnauthenticated
	}

	return Subject{ID: info.SubjectID, Roles: info.Roles}, nil
}
