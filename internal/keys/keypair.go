package keys

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File names produced by `casper-client keygen`.
const (
	PublicKeyHexFile = "public_key_hex"
	PublicKeyPEMFile = "public_key.pem"
	SecretKeyPEMFile = "secret_key.pem"
)

// ErrNoSecretKey is returned when a key directory holds no secret key.
var ErrNoSecretKey = errors.New("secret key not found")

// KeyPair is a public key plus the location of its PEM secret key. The
// secret never leaves the file; casper-client reads it when signing.
type KeyPair struct {
	PublicKey     PublicKey
	SecretKeyPath string
}

// LoadKeyPair reads a key directory laid out by `casper-client keygen`.
// public_key_hex is preferred; an ed25519 public_key.pem is the fallback.
func LoadKeyPair(dir string) (KeyPair, error) {
	pk, err := loadPublicKey(dir)
	if err != nil {
		return KeyPair{}, err
	}

	secret := filepath.Join(dir, SecretKeyPEMFile)
	if _, err := os.Stat(secret); err != nil {
		return KeyPair{}, fmt.Errorf("%w in %s: %v", ErrNoSecretKey, dir, err)
	}
	return KeyPair{PublicKey: pk, SecretKeyPath: secret}, nil
}

func loadPublicKey(dir string) (PublicKey, error) {
	data, err := os.ReadFile(filepath.Join(dir, PublicKeyHexFile))
	if err == nil {
		return ParsePublicKey(strings.TrimSpace(string(data)))
	}
	if !os.IsNotExist(err) {
		return PublicKey{}, fmt.Errorf("reading %s: %w", PublicKeyHexFile, err)
	}

	data, err = os.ReadFile(filepath.Join(dir, PublicKeyPEMFile))
	if err != nil {
		return PublicKey{}, fmt.Errorf("no public key in %s: %w", dir, err)
	}
	return ParsePublicKeyPEM(data)
}

// ParsePublicKeyPEM decodes an ed25519 SubjectPublicKeyInfo PEM block.
func ParsePublicKeyPEM(data []byte) (PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return PublicKey{}, fmt.Errorf("%w: no PEM block", ErrInvalidPublicKey)
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return PublicKey{}, fmt.Errorf("%w: unsupported PEM key type %T", ErrInvalidPublicKey, parsed)
	}
	return PublicKey{Algorithm: ED25519, Raw: []byte(edKey)}, nil
}
