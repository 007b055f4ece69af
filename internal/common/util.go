package common

import "crypto/rand"

// GenerateRandByteArray returns size cryptographically random bytes.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	_, _ = rand.Read(b)
	return b
}

// Wipe overwrites the contents of the provided byte slice with zeros.
// This is useful for removing sensitive data such as passphrases or
// cryptographic keys from memory after use.
//
// If the slice is nil, the function does nothing.
func Wipe(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}
