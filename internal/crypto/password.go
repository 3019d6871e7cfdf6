package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes plaintext using bcrypt. The per-call random salt is
// embedded in the returned hash. bcrypt rejects inputs longer than 72
// bytes; request validation enforces that bound before this is reached.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
}

// VerifyPassword reports whether plaintext matches the stored hash.
// The comparison is constant time; a malformed hash is a mismatch, not
// an error.
func VerifyPassword(hash []byte, plain string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil
}
