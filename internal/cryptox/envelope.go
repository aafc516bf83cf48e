// Package cryptox implements the password-based envelope encryption used for
// trigger payloads. The server only ever stores the resulting EncryptedBlock;
// the password never leaves the client that encrypts and the recipient that
// later decrypts.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/lastword/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// BlockVersion is the only envelope format version currently supported.
	BlockVersion = 1

	saltLength    = 16
	ivLength      = 12
	keyLength     = 32
	kdfIterations = 100000
)

// EncryptedBlock is the payload envelope stored by the server and embedded in
// claim files. All binary fields are base64-encoded.
type EncryptedBlock struct {
	Version int    `json:"version"`
	Salt    string `json:"salt"`
	IV      string `json:"iv"`
	Data    string `json:"data"`
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keyLength, sha256.New)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with a key derived from password. A fresh random
// salt and IV are generated on every call, so encrypting identical input twice
// yields different blocks.
func Encrypt(password, plaintext string) (*EncryptedBlock, error) {
	salt := common.GenerateRandByteArray(saltLength)
	iv := common.GenerateRandByteArray(ivLength)

	aead, err := newAEAD(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	ciphertext := aead.Seal(nil, iv, []byte(plaintext), nil)

	return &EncryptedBlock{
		Version: BlockVersion,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		IV:      base64.StdEncoding.EncodeToString(iv),
		Data:    base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt opens an EncryptedBlock with the given password.
//
// Structural problems (missing fields, unsupported version, bad base64) are
// reported as common.ErrInvalidBlock before any key derivation happens. A
// wrong password and a corrupt ciphertext both surface as the single
// common.ErrCannotDecrypt so the caller cannot build a password oracle.
func Decrypt(password string, block *EncryptedBlock) (string, error) {
	if block == nil || block.Salt == "" || block.IV == "" || block.Data == "" || block.Version == 0 {
		return "", fmt.Errorf("%w: missing fields", common.ErrInvalidBlock)
	}
	if block.Version != BlockVersion {
		return "", fmt.Errorf("%w: version %d not supported", common.ErrInvalidBlock, block.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(block.Salt)
	if err != nil {
		return "", fmt.Errorf("%w: salt: %v", common.ErrInvalidBlock, err)
	}
	iv, err := base64.StdEncoding.DecodeString(block.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", common.ErrInvalidBlock, err)
	}
	data, err := base64.StdEncoding.DecodeString(block.Data)
	if err != nil {
		return "", fmt.Errorf("%w: data: %v", common.ErrInvalidBlock, err)
	}
	// GCM panics on a nonce of the wrong size, so reject it up front.
	if len(iv) != ivLength {
		return "", fmt.Errorf("%w: iv length %d", common.ErrInvalidBlock, len(iv))
	}

	aead, err := newAEAD(deriveKey(password, salt))
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, iv, data, nil)
	if err != nil {
		return "", common.ErrCannotDecrypt
	}

	return string(plaintext), nil
}
