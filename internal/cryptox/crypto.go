// Package cryptox implements the encryption collaborator: AES-GCM payload
// encryption with the auth tag carried separately, plus argon2id master-key
// derivation. The sync engine treats payloads produced here as opaque.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"golang.org/x/crypto/argon2"
)

// EncryptedPayload is the triple stored in remote sync rows. Ciphertext does
// not include the GCM auth tag; the tag travels in its own field.
type EncryptedPayload struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	AuthTag    []byte `json:"auth_tag"`
}

// MakeVerifier returns a hash of the master key suitable for storing locally
// to validate a passphrase without keeping the key itself.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey derives a 32-byte AES key from a passphrase and salt using
// argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// Encrypt encrypts plaintext with AES-GCM under key.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A new random
// 12-byte nonce is generated for each call. The GCM auth tag is split off the
// sealed output and returned as a separate field.
func Encrypt(plaintext, key []byte) (*EncryptedPayload, error) {
	nonce := make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)
	tagStart := len(sealed) - aesgcm.Overhead()

	return &EncryptedPayload{
		Ciphertext: sealed[:tagStart],
		Nonce:      nonce,
		AuthTag:    sealed[tagStart:],
	}, nil
}

// Decrypt reverses Encrypt. The key and nonce must match the ones used during
// encryption; a tampered ciphertext or tag yields common.ErrorDecryptFailed.
func Decrypt(p *EncryptedPayload, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(p.Ciphertext)+len(p.AuthTag))
	sealed = append(sealed, p.Ciphertext...)
	sealed = append(sealed, p.AuthTag...)

	plaintext, err := aesgcm.Open(nil, p.Nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrorDecryptFailed
	}
	return plaintext, nil
}
