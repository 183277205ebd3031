package config

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

const rsaKeyBits = 2048

// loadJWTKeys reads the base64 PEM keypair from JWT_PRIVATE_KEY and JWT_PUBLIC_KEY.
// Outside production a missing pair is replaced by an ephemeral one, which
// invalidates every token on restart.
func (c *Config) loadJWTKeys() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateB64, publicB64 := os.Getenv("JWT_PRIVATE_KEY"), os.Getenv("JWT_PUBLIC_KEY")

	if privateB64 == "" || publicB64 == "" {
		if c.IsProduction() {
			return nil, nil, errors.New("JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set in production")
		}
		slog.Info("generating ephemeral RSA keypair for JWT", "environment", c.Server.Environment)
		return GenerateRSAKeyPair()
	}

	privateKey, err := decodeKey("JWT_PRIVATE_KEY", privateB64, parseRSAPrivateKey)
	if err != nil {
		return nil, nil, err
	}
	publicKey, err := decodeKey("JWT_PUBLIC_KEY", publicB64, parseRSAPublicKey)
	if err != nil {
		return nil, nil, err
	}

	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, nil, errors.New("JWT_PUBLIC_KEY does not match JWT_PRIVATE_KEY")
	}

	slog.Info("loaded RSA keypair from environment")
	return privateKey, publicKey, nil
}

func decodeKey[K any](name, encoded string, parse func(*pem.Block) (K, error)) (K, error) {
	var zero K

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return zero, fmt.Errorf("%s does not contain a PEM block", name)
	}

	key, err := parse(block)
	if err != nil {
		return zero, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return key, nil
}

// parseRSAPrivateKey accepts PKCS#1 and PKCS#8 encodings
func parseRSAPrivateKey(block *pem.Block) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("not an RSA private key")
	}
	return rsaKey, nil
}

func parseRSAPublicKey(block *pem.Block) (*rsa.PublicKey, error) {
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not an RSA public key")
	}
	return rsaKey, nil
}

// GenerateRSAKeyPair creates a fresh signing keypair
func GenerateRSAKeyPair() (*rsa.PrivateKey, *rsa.PublicKey, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}
	return privateKey, &privateKey.PublicKey, nil
}
