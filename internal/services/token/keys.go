// Copyright 2026 Felix Köhler
// Licensed under the EUPL-1.2

package token

import (
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair holds the RSA keys used for token signatures. Only the signing side
// needs the private key; verification works with the public key alone.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadKeyPair reads a PEM-encoded RSA key pair from dir.
func LoadKeyPair(dir, privateKeyFile, publicKeyFile string) (*KeyPair, error) {
	privPEM, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	pubPEM, err := os.ReadFile(filepath.Join(dir, publicKeyFile))
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}

	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	return &KeyPair{Private: priv, Public: pub}, nil
}

// GenerateKeyPair creates an ephemeral RSA key pair. Intended for tests and
// local development; production deployments load persistent PEM keys.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// VerifyOnly returns a key pair that can verify but not sign.
func VerifyOnly(pub *rsa.PublicKey) *KeyPair {
	return &KeyPair{Public: pub}
}
