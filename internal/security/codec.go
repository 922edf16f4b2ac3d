package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "purepresenter/internal/errors"
)

const blobSeparator = ":"

// Codec encrypts payload strings into "hex(iv):hex(ciphertext)" blobs using
// AES-256-CBC with PKCS#7 padding. Every Encrypt call draws a fresh IV, so the
// same plaintext never produces the same blob twice.
//
// A Codec is safe for concurrent use.
type Codec struct {
	block cipher.Block
}

// NewCodec derives the key from passphrase and salt and returns a ready codec
func NewCodec(passphrase, salt string, params KDFParams) (*Codec, error) {
	key, err := DeriveKey(passphrase, salt, params)
	if err != nil {
		return nil, err
	}
	return NewCodecWithKey(key)
}

// NewCodecWithKey builds a codec from an already derived 32-byte key.
// The caller's key slice is zeroed.
func NewCodecWithKey(key []byte) (*Codec, error) {
	defer zero(key)

	if len(key) != KeyLength {
		return nil, fmt.Errorf("invalid key length %d, want %d", len(key), KeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Codec{block: block}, nil
}

// Encrypt encrypts plaintext under a random IV
func (c *Codec) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + blobSeparator + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Any malformed blob, including one written under a
// different key, yields ErrCorruptBlob.
func (c *Codec) Decrypt(blob string) (string, error) {
	ivHex, ctHex, found := strings.Cut(strings.TrimSpace(blob), blobSeparator)
	if !found {
		return "", fmt.Errorf("%w: missing separator", apperrors.ErrCorruptBlob)
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: invalid iv", apperrors.ErrCorruptBlob)
	}

	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: invalid ciphertext", apperrors.ErrCorruptBlob)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: payload is not valid utf-8", apperrors.ErrCorruptBlob)
	}

	return string(plaintext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", apperrors.ErrCorruptBlob)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", apperrors.ErrCorruptBlob)
		}
	}
	return data[:len(data)-n], nil
}
