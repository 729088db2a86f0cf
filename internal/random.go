package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const refreshSecretSize = 32

// NewRefreshSecret returns a fresh opaque refresh secret. The secret is
// handed to the caller once; only its hash is ever persisted.
func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashRefreshSecret derives the storable digest of a refresh secret.
func HashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// NewOTP generates a numeric one-time code of the given length from a
// cryptographically secure source.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// HashOTP derives the storable digest of a one-time code. The plaintext code
// is never written to any store or sink.
func HashOTP(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}
