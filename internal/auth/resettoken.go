package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const resetTokenSize = 32 // 256 bits of entropy

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 10 * time.Minute

// GenerateResetToken creates an opaque password reset token.
// The plain token goes into the reset email; only its hash is stored, so a
// database leak never exposes a usable token. Returns both forms.
func GenerateResetToken() (plain, hashed string, err error) {
	b := make([]byte, resetTokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate reset token: %w", err)
	}

	plain = hex.EncodeToString(b)
	return plain, HashResetToken(plain), nil
}

// HashResetToken returns the sha256 hex digest of a plain reset token.
func HashResetToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
