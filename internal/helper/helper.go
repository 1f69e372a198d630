package helper

import (
	"crypto/sha256"
	"encoding/hex"

	"go.uber.org/zap"
)

// Hash8 is a short stable fingerprint: enough to correlate log lines, not
// enough to recover the value.
func Hash8(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// EmailField logs an email by fingerprint only.
func EmailField(email string) zap.Field {
	return zap.String("email_hash", Hash8(email))
}
