// Package auth holds the credential material the backend hands to pipeds:
// the piped key used to authenticate against the control plane and the age
// keypair used for sealed secrets.
package auth

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"golang.org/x/crypto/bcrypt"
)

const (
	pipedKeyBytes = 32

	// SealedSecretType tags the encryption a piped's sealed secrets use.
	SealedSecretType = "AGE_X25519"
)

var ErrInvalidPipedKey = errors.New("invalid piped key")

// GeneratePipedKey returns a fresh random key and the hash to store for it.
// The key itself is never persisted.
func GeneratePipedKey() (key, hash string, err error) {
	buf := make([]byte, pipedKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate piped key: %w", err)
	}
	key = hex.EncodeToString(buf)
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("hash piped key: %w", err)
	}
	return key, string(hashed), nil
}

// CheckPipedKey reports ErrInvalidPipedKey unless key matches hash.
func CheckPipedKey(hash, key string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrInvalidPipedKey
	}
	return nil
}

// SealingKey is an age x25519 keypair. The public half is stored on the
// piped; the private half is shown to the operator once.
type SealingKey struct {
	PublicKey  string
	PrivateKey string
}

func GenerateSealingKey() (SealingKey, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return SealingKey{}, fmt.Errorf("generate age identity: %w", err)
	}
	return SealingKey{
		PublicKey:  identity.Recipient().String(),
		PrivateKey: identity.String(),
	}, nil
}

// Seal encrypts plaintext to publicKey and returns base64 ciphertext.
func Seal(publicKey string, plaintext []byte) (string, error) {
	recipient, err := age.ParseX25519Recipient(publicKey)
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("create encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Unseal reverses Seal with the private key.
func Unseal(privateKey, ciphertext string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return io.ReadAll(r)
}
