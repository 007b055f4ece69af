package cryptox

import (
	"testing"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := common.GenerateRandByteArray(32)
	plaintext := []byte(`{"title":"note","text":"hello"}`)

	p, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	require.Len(t, p.Nonce, 12)
	require.Len(t, p.AuthTag, 16)
	assert.NotEqual(t, plaintext, p.Ciphertext)

	got, err := Decrypt(p, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestDecrypt_TamperedTag(t *testing.T) {
	key := common.GenerateRandByteArray(32)

	p, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	p.AuthTag[0] ^= 0xff
	_, err = Decrypt(p, key)
	require.ErrorIs(t, err, common.ErrorDecryptFailed)
}

func TestDecrypt_WrongKey(t *testing.T) {
	key := common.GenerateRandByteArray(32)

	p, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	other := common.GenerateRandByteArray(32)
	_, err = Decrypt(p, other)
	require.ErrorIs(t, err, common.ErrorDecryptFailed)
}

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DeriveMasterKey([]byte("passphrase"), salt)
	k2 := DeriveMasterKey([]byte("passphrase"), salt)
	require.Len(t, k1, 32)
	assert.Equal(t, k1, k2)

	k3 := DeriveMasterKey([]byte("other"), salt)
	assert.NotEqual(t, k1, k3)
}

func TestMakeVerifier(t *testing.T) {
	key := common.GenerateRandByteArray(32)
	v := MakeVerifier(key)
	require.Len(t, v, 32)
	assert.Equal(t, v, MakeVerifier(key))
}
