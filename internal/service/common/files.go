//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/zeebo/blake3"

	"github.com/oshokin/ext-packager/internal/config"

	// Ensure SHA256 available for replacement checksums.
	_ "crypto/sha256"
)

// ReplaceChecksumFunction is used to verify replaced files after they are written.
const ReplaceChecksumFunction crypto.Hash = crypto.SHA256

var errHashUnavailable = errors.New("hash function unavailable")

// Digest returns the BLAKE3 digest of the file at path.
func Digest(path string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := blake3.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("calculate digest: %w", err)
	}

	return hasher.Sum(nil), nil
}

// SameContents reports whether both files exist and have identical contents.
// A missing file is not an error; it simply means the contents differ.
func SameContents(a, b string) (bool, error) {
	left, err := Digest(a)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	right, err := Digest(b)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return bytes.Equal(left, right), nil
}

// CopyFile copies src to dst unless dst already holds the same bytes. It reports whether a
// copy took place. An existing destination is replaced atomically and checksum-verified.
func CopyFile(src, dst string) (bool, error) {
	src, dst = filepath.Clean(src), filepath.Clean(dst)

	same, err := SameContents(src, dst)
	if err != nil {
		return false, fmt.Errorf("compare %s: %w", dst, err)
	}

	if same {
		return false, nil
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", src, err)
	}

	if err = ReplaceFile(dst, data); err != nil {
		return false, err
	}

	return true, nil
}

// ReplaceFile writes data to path. Readers of an existing file see either the old or the new
// contents, never a partial write.
func ReplaceFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err = os.WriteFile(path, data, config.DefaultDistFilePermissions); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		return nil
	}

	if !ReplaceChecksumFunction.Available() {
		return fmt.Errorf("replace %s: %w", path, errHashUnavailable)
	}

	hasher := ReplaceChecksumFunction.New()
	_, _ = hasher.Write(data)

	oldPath := path + ".old"
	options := goupdate.Options{
		TargetPath:  path,
		TargetMode:  config.DefaultDistFilePermissions,
		Checksum:    hasher.Sum(nil),
		Hash:        ReplaceChecksumFunction,
		OldSavePath: oldPath,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}
