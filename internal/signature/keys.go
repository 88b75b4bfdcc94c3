package signature

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/ext-packager/internal/config"
)

// KeySize is the modulus size of generated keys.
const KeySize = 2048

const (
	privateKeyBlock    = "PRIVATE KEY"
	rsaPrivateKeyBlock = "RSA PRIVATE KEY"
	publicKeyBlock     = "PUBLIC KEY"
)

var (
	// ErrInvalidKey is returned when a key file holds no usable RSA key.
	ErrInvalidKey = errors.New("invalid key")
	// ErrKeyMismatch is returned when a public key does not belong to the private key.
	ErrKeyMismatch = errors.New("public key does not match private key")
)

// KeyPair holds a signing key and its public half.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// GenerateKeyPair creates a fresh RSA key pair.
func GenerateKeyPair() (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeySize)
	if err != nil {
		return nil, fmt.Errorf("generate rsa key: %w", err)
	}

	return &KeyPair{
		Private: key,
		Public:  &key.PublicKey,
	}, nil
}

// Check verifies that both halves are present and belong together.
func (kp *KeyPair) Check() error {
	if kp == nil || kp.Private == nil || kp.Public == nil {
		return fmt.Errorf("%w: key pair is incomplete", ErrInvalidKey)
	}

	if !kp.Private.PublicKey.Equal(kp.Public) {
		return ErrKeyMismatch
	}

	return nil
}

// SavePrivateKey writes key as a PKCS#8 PEM document readable only by the owner.
func SavePrivateKey(path string, key *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}

	return writePEM(path, privateKeyBlock, der, config.DefaultFilePermissions)
}

// SavePublicKey writes key as a PKIX PEM document.
func SavePublicKey(path string, key *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	return writePEM(path, publicKeyBlock, der, config.DefaultDistFilePermissions)
}

// LoadPrivateKey reads an RSA private key in either PKCS#1 or PKCS#8 form.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	if key, parseErr := x509.ParsePKCS1PrivateKey(block.Bytes); parseErr == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %w", ErrInvalidKey, err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is not an RSA key", ErrInvalidKey)
	}

	return key, nil
}

// LoadPublicKey reads an RSA public key in PKIX or PKCS#1 form.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}

	if key, parseErr := x509.ParsePKCS1PublicKey(block.Bytes); parseErr == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %w", ErrInvalidKey, err)
	}

	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not an RSA key", ErrInvalidKey)
	}

	return key, nil
}

// LoadKeyPair reads both halves and checks that they match.
func LoadKeyPair(privatePath, publicPath string) (*KeyPair, error) {
	priv, err := LoadPrivateKey(privatePath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	pub, err := LoadPublicKey(publicPath)
	if err != nil {
		return nil, fmt.Errorf("load public key: %w", err)
	}

	kp := &KeyPair{Private: priv, Public: pub}
	if err = kp.Check(); err != nil {
		return nil, err
	}

	return kp, nil
}

// SaveKeyPair writes both halves, creating parent directories as needed.
func SaveKeyPair(kp *KeyPair, privatePath, publicPath string) error {
	if err := kp.Check(); err != nil {
		return err
	}

	if err := SavePrivateKey(privatePath, kp.Private); err != nil {
		return err
	}

	return SavePublicKey(publicPath, kp.Public)
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%w: %s is not PEM encoded", ErrInvalidKey, path)
	}

	return block, nil
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}

	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(filepath.Clean(path), data, mode); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	return nil
}
