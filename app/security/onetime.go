package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/vibast-solutions/ms-go-userauth/app/entity"
)

// OneTimeTokenBytes is the entropy of verification and reset tokens.
const OneTimeTokenBytes = 20

type OneTimeToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// Pending returns the part of the token that is safe to persist.
func (t *OneTimeToken) Pending() *entity.PendingToken {
	return &entity.PendingToken{Hash: t.Hash, ExpiresAt: t.ExpiresAt}
}

type OneTimeTokenGenerator struct {
	ttl time.Duration
	now func() time.Time
}

func NewOneTimeTokenGenerator(ttl time.Duration) *OneTimeTokenGenerator {
	return &OneTimeTokenGenerator{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for expiries.
func (g *OneTimeTokenGenerator) WithClock(now func() time.Time) *OneTimeTokenGenerator {
	if now != nil {
		g.now = now
	}
	return g
}

func (g *OneTimeTokenGenerator) Generate() (*OneTimeToken, error) {
	raw := make([]byte, OneTimeTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}

	plaintext := hex.EncodeToString(raw)
	return &OneTimeToken{
		Plaintext: plaintext,
		Hash:      HashToken(plaintext),
		ExpiresAt: g.now().Add(g.ttl),
	}, nil
}

// HashToken is a fast deterministic digest used for one-time and refresh
// tokens. Lookups re-hash the presented value and match it against the
// stored digest.
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
