package signature

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshokin/ext-packager/internal/config"
)

// ErrNoKey is returned when signing or verifying without the required key.
var ErrNoKey = errors.New("key is not available")

// Sign returns the raw signature of everything read from r.
func Sign(r io.Reader, key *rsa.PrivateKey) ([]byte, error) {
	if key == nil {
		return nil, ErrNoKey
	}

	digest, err := digestOf(r)
	if err != nil {
		return nil, err
	}

	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}

	return sig, nil
}

// Verify reports whether sig is a valid signature of everything read from r. A mismatch is
// false with a nil error; read failures and a missing key are errors.
func Verify(r io.Reader, sig []byte, key *rsa.PublicKey) (bool, error) {
	if key == nil {
		return false, ErrNoKey
	}

	digest, err := digestOf(r)
	if err != nil {
		return false, err
	}

	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest, sig) == nil, nil
}

// SignFile signs the file at path and returns the raw signature.
func SignFile(path string, key *rsa.PrivateKey) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open file to sign: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return Sign(f, key)
}

// SignFileTo signs the file at path and stores the signature at sigPath.
func SignFileTo(path, sigPath string, key *rsa.PrivateKey) error {
	sig, err := SignFile(path, key)
	if err != nil {
		return err
	}

	return WriteSignature(sigPath, sig)
}

// VerifyFile checks the file at path against the signature stored at sigPath.
// A mismatch is reported as false with a nil error; I/O problems are errors.
func VerifyFile(path, sigPath string, key *rsa.PublicKey) (bool, error) {
	sig, err := ReadSignature(sigPath)
	if err != nil {
		return false, err
	}

	return VerifyFileBytes(path, sig, key)
}

// VerifyFileBytes checks the file at path against raw signature bytes already in memory.
func VerifyFileBytes(path string, sig []byte, key *rsa.PublicKey) (bool, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false, fmt.Errorf("open file to verify: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return Verify(f, sig, key)
}

// WriteSignature stores sig as base64 text.
func WriteSignature(path string, sig []byte) error {
	encoded := base64.StdEncoding.EncodeToString(sig)
	if err := os.WriteFile(filepath.Clean(path), []byte(encoded), config.DefaultDistFilePermissions); err != nil {
		return fmt.Errorf("write signature: %w", err)
	}

	return nil
}

// ReadSignature loads a signature file. Base64 text is decoded; anything else is taken as the
// raw signature bytes.
func ReadSignature(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read signature: %w", err)
	}

	text := bytes.TrimSpace(data)

	decoded := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	if n, decodeErr := base64.StdEncoding.Decode(decoded, text); decodeErr == nil {
		return decoded[:n], nil
	}

	return data, nil
}

func digestOf(r io.Reader) ([]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, fmt.Errorf("hash contents: %w", err)
	}

	return h.Sum(nil), nil
}
