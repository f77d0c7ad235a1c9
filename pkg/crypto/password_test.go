package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastArgon2 keeps test runs quick while exercising the same code paths
func fastArgon2() *Argon2 {
	return &Argon2{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

// Requirement: every supported hasher round-trips a password and rejects
// near misses.
func TestPasswordHandlers_HashAndVerify(t *testing.T) {
	hashers := map[string]PasswordHandler{
		"argon2": fastArgon2(),
		"bcrypt": &Bcrypt{Cost: 4},
	}

	tests := []struct {
		name     string
		password string
		attempt  string
		wantOk   bool
	}{
		{name: "correct password", password: "Secret1!", attempt: "Secret1!", wantOk: true},
		{name: "wrong password", password: "Secret1!", attempt: "Secret2!", wantOk: false},
		{name: "case sensitive", password: "Secret1!", attempt: "secret1!", wantOk: false},
		{name: "extra character", password: "Secret1!", attempt: "Secret1!x", wantOk: false},
		{name: "unicode", password: "Contraseña9ñ", attempt: "Contraseña9ñ", wantOk: true},
	}

	for kind, h := range hashers {
		for _, test := range tests {
			test := test
			h := h
			t.Run(kind+"/"+test.name, func(t *testing.T) {
				// Arrange
				hash, err := h.Hash(test.password)
				require.NoError(t, err)
				require.NotEmpty(t, hash)

				// Act
				ok, err := h.Verify(test.attempt, hash)

				// Assert
				require.NoError(t, err)
				assert.Equal(t, test.wantOk, ok)
			})
		}
	}
}

// Requirement: argon2 hashes use the PHC argon2id format with a fresh salt.
func TestArgon2_Hash_Format(t *testing.T) {
	// Arrange
	a := fastArgon2()

	// Act
	hash1, err1 := a.Hash("samePassword")
	hash2, err2 := a.Hash("samePassword")

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, strings.HasPrefix(hash1, "$argon2id$v=19$"))
	assert.Len(t, strings.Split(hash1, "$"), 6)
	assert.NotEqual(t, hash1, hash2, "salts should differ between calls")
}

// Requirement: Verify reads parameters from the stored hash, not the instance.
func TestArgon2_Verify_AcrossInstances(t *testing.T) {
	// Arrange
	custom := &Argon2{Memory: 4 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 8, KeyLength: 16}
	hash, err := custom.Hash("Password1!")
	require.NoError(t, err)

	// Act
	ok, err := NewArgon2().Verify("Password1!", hash)

	// Assert
	require.NoError(t, err)
	assert.True(t, ok)

	params, salt, key, err := decodeArgon2Hash(hash)
	require.NoError(t, err)
	assert.Equal(t, uint32(4*1024), params.Memory)
	assert.Equal(t, uint32(2), params.Iterations)
	assert.Equal(t, uint8(1), params.Parallelism)
	assert.Len(t, salt, 8)
	assert.Len(t, key, 16)
}

func TestArgon2_Verify_InvalidHashes(t *testing.T) {
	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{name: "empty", hash: "", wantErr: ErrInvalidHash},
		{name: "invalid format", hash: "invalid-hash", wantErr: ErrInvalidHash},
		{name: "too few parts", hash: "$argon2id$v=19$m=65536,t=3,p=2$salt", wantErr: ErrInvalidHash},
		{name: "argon2i", hash: "$argon2i$v=19$m=65536,t=3,p=2$salt$hash", wantErr: ErrUnsupportedHash},
		{name: "bcrypt prefix", hash: "$bcrypt$v=19$m=65536,t=3,p=2$salt$hash", wantErr: ErrUnsupportedHash},
		{name: "old version", hash: "$argon2id$v=16$m=65536,t=3,p=2$c2FsdA$aGFzaA", wantErr: ErrUnsupportedHash},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			_, err := fastArgon2().Verify("password", test.hash)

			// Assert
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

func TestBcrypt_Verify_InvalidHash(t *testing.T) {
	// Act
	ok, err := NewBcrypt().Verify("password", "not-a-bcrypt-hash")

	// Assert
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidHash)
}

// Requirement: the hasher is selected by configuration name.
func TestNewPasswordHandler(t *testing.T) {
	tests := []struct {
		kind    string
		want    interface{}
		wantErr error
	}{
		{kind: "", want: &Argon2{}},
		{kind: "argon2", want: &Argon2{}},
		{kind: "BCRYPT", want: &Bcrypt{}},
		{kind: "md5", wantErr: ErrUnknownHasherKind},
	}

	for _, test := range tests {
		test := test
		t.Run("kind="+test.kind, func(t *testing.T) {
			// Act
			h, err := NewPasswordHandler(test.kind)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
				assert.Nil(t, h)
				return
			}
			require.NoError(t, err)
			require.IsType(t, &MultiHasher{}, h)
			assert.IsType(t, test.want, h.(*MultiHasher).Primary)
		})
	}
}

// Requirement: a hash made by either algorithm verifies no matter which
// algorithm new passwords are hashed with.
func TestMultiHasher_VerifiesEveryAlgorithm(t *testing.T) {
	const password = "Secret1!"

	argonHash, err := fastArgon2().Hash(password)
	require.NoError(t, err)
	bcryptHash, err := (&Bcrypt{Cost: 4}).Hash(password)
	require.NoError(t, err)
	bcrypt2y := "$2y$" + strings.TrimPrefix(bcryptHash, "$2a$")

	primaries := map[string]PasswordHandler{
		"argon2": fastArgon2(),
		"bcrypt": &Bcrypt{Cost: 4},
	}

	tests := []struct {
		name    string
		hash    string
		attempt string
		wantOk  bool
	}{
		{name: "argon2 hash", hash: argonHash, attempt: password, wantOk: true},
		{name: "argon2 hash wrong password", hash: argonHash, attempt: "Secret2!", wantOk: false},
		{name: "bcrypt hash", hash: bcryptHash, attempt: password, wantOk: true},
		{name: "bcrypt 2y hash", hash: bcrypt2y, attempt: password, wantOk: true},
		{name: "bcrypt hash wrong password", hash: bcryptHash, attempt: "Secret2!", wantOk: false},
	}

	for kind, primary := range primaries {
		for _, test := range tests {
			test := test
			m := &MultiHasher{Primary: primary}
			t.Run(kind+"/"+test.name, func(t *testing.T) {
				// Act
				ok, err := m.Verify(test.attempt, test.hash)

				// Assert
				require.NoError(t, err)
				assert.Equal(t, test.wantOk, ok)
			})
		}
	}
}

func TestMultiHasher_HashUsesPrimary(t *testing.T) {
	tests := []struct {
		name       string
		primary    PasswordHandler
		wantPrefix string
	}{
		{name: "argon2", primary: fastArgon2(), wantPrefix: "$argon2id$"},
		{name: "bcrypt", primary: &Bcrypt{Cost: 4}, wantPrefix: "$2a$"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			hash, err := (&MultiHasher{Primary: test.primary}).Hash("Secret1!")

			// Assert
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, test.wantPrefix), hash)
		})
	}
}

func TestMultiHasher_Verify_UnknownHash(t *testing.T) {
	m := &MultiHasher{Primary: fastArgon2()}

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{name: "other algorithm", hash: "$scrypt$ln=16,r=8,p=1$c2FsdA$aGFzaA", wantErr: ErrUnsupportedHash},
		{name: "argon2i", hash: "$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA", wantErr: ErrUnsupportedHash},
		{name: "plain text", hash: "Secret1!", wantErr: ErrInvalidHash},
		{name: "empty", hash: "", wantErr: ErrInvalidHash},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			ok, err := m.Verify("Secret1!", test.hash)

			assert.False(t, ok)
			assert.ErrorIs(t, err, test.wantErr)
		})
	}
}

// Requirement: bcrypt never admits a password longer than it can hash, even
// when its first 72 bytes match.
func TestBcrypt_Verify_TooLong(t *testing.T) {
	// Arrange
	b := &Bcrypt{Cost: 4}
	password := strings.Repeat("a", 72)
	hash, err := b.Hash(password)
	require.NoError(t, err)

	// Act
	ok, err := b.Verify(password+"extra", hash)

	// Assert
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = b.Hash(password + "x")
	assert.Error(t, err)
}

func TestArgon2_Concurrent(t *testing.T) {
	// Arrange
	a := fastArgon2()
	const goroutines = 8
	errs := make(chan error, goroutines)

	// Act
	for i := 0; i < goroutines; i++ {
		i := i
		go func() {
			password := strings.Repeat("Ab1!", i+1)
			hash, err := a.Hash(password)
			if err != nil {
				errs <- err
				return
			}
			_, err = a.Verify(password, hash)
			errs <- err
		}()
	}

	// Assert
	for i := 0; i < goroutines; i++ {
		assert.NoError(t, <-errs)
	}
}

func FuzzArgon2_Hash(f *testing.F) {
	f.Add("")
	f.Add("Secret1!")
	f.Add(strings.Repeat("a", 128))
	f.Add("pass\x00word")

	f.Fuzz(func(t *testing.T, password string) {
		a := fastArgon2()

		hash, err := a.Hash(password)
		if err != nil {
			t.Fatalf("Hash() error = %v", err)
		}

		ok, err := a.Verify(password, hash)
		if err != nil || !ok {
			t.Fatalf("Verify() = %v, %v; want true, nil", ok, err)
		}
	})
}
