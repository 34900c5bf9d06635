package platform

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func NewID() string {
	return uuid.New().String()
}

// NewSecret generates a hex-encoded random secret of numBytes entropy.
// Used for webhook signing secrets handed to subscribers.
func NewSecret(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return hex.EncodeToString(b)
}
