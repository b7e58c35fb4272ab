package security

import (
	"strings"
	"testing"

	"github.com/vibast-solutions/ms-go-userauth/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testArgon2id() *Argon2id {
	return NewArgon2id(1024, 1, 1)
}

func TestPasswordHashers(t *testing.T) {
	tests := []struct {
		name   string
		hasher PasswordHasher
		prefix string
	}{
		{name: "bcrypt", hasher: NewBcrypt(bcrypt.MinCost), prefix: "$2a$"},
		{name: "argon2id", hasher: testArgon2id(), prefix: argon2idPrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := tt.hasher.Hash("secret1")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, tt.prefix), "unexpected hash format %q", hash)
			assert.NotContains(t, hash, "secret1")

			ok, err := tt.hasher.Verify("secret1", hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = tt.hasher.Verify("secret2", hash)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPasswordHashersUseFreshSalt(t *testing.T) {
	for _, hasher := range []PasswordHasher{NewBcrypt(bcrypt.MinCost), testArgon2id()} {
		first, err := hasher.Hash("same-password")
		require.NoError(t, err)
		second, err := hasher.Hash("same-password")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	}
}

func TestBcryptAcceptsLongPasswords(t *testing.T) {
	b := NewBcrypt(bcrypt.MinCost)
	long := strings.Repeat("a", 100)

	hash, err := b.Hash(long)
	require.NoError(t, err)

	ok, err := b.Verify(long, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	// Bytes past the 72nd still matter.
	ok, err = b.Verify(strings.Repeat("a", 99)+"b", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	// Passwords within bcrypt's limit keep the plain encoding.
	exact := strings.Repeat("x", 72)
	plain, err := bcrypt.GenerateFromPassword([]byte(exact), bcrypt.MinCost)
	require.NoError(t, err)
	ok, err = b.Verify(exact, string(plain))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewBcryptClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(0).Cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcrypt(bcrypt.MaxCost+1).Cost)
	assert.Equal(t, 12, NewBcrypt(12).Cost)
}

func TestArgon2idRejectsMalformedHash(t *testing.T) {
	a := testArgon2id()

	tests := []string{
		"",
		"$argon2id$v=19$m=1024,t=1,p=1$onlysalt",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	}

	for _, encoded := range tests {
		ok, err := a.Verify("secret1", encoded)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrInvalidHashFormat, "input %q", encoded)
	}
}

func TestMultiHasherVerifiesBothFormats(t *testing.T) {
	m, err := NewPasswordHasher(config.PasswordConfig{
		Hasher:     HasherArgon2id,
		BcryptCost: bcrypt.MinCost,
		Argon2:     config.Argon2Config{MemoryKiB: 1024, Iterations: 1, Parallelism: 1},
	})
	require.NoError(t, err)

	legacy, err := NewBcrypt(bcrypt.MinCost).Hash("secret1")
	require.NoError(t, err)

	ok, err := m.Verify("secret1", legacy)
	require.NoError(t, err)
	assert.True(t, ok)

	current, err := m.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(current, argon2idPrefix))

	ok, err = m.Verify("secret1", current)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewPasswordHasherRejectsUnknown(t *testing.T) {
	_, err := NewPasswordHasher(config.PasswordConfig{Hasher: "md5"})
	assert.ErrorIs(t, err, ErrUnknownHasher)
}
