package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
)

// WriteBundle writes a zip bundle at path containing the given entries. It is used by tests
// across packages to build artifact fixtures.
func WriteBundle(p string, entries map[string][]byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create bundle directory: %w", err)
	}

	f, err := os.Create(filepath.Clean(p))
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}

	w := zip.NewWriter(f)

	for name, data := range entries {
		entry, createErr := w.Create(name)
		if createErr != nil {
			_ = f.Close()
			return fmt.Errorf("create entry %s: %w", name, createErr)
		}

		if _, err = entry.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("write entry %s: %w", name, err)
		}
	}

	if err = w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("finish bundle: %w", err)
	}

	return f.Close()
}

// WriteExtension writes a bundle whose descriptor carries the given identity plus an arbitrary
// payload entry, so bundles with equal descriptors can still differ in bytes.
func WriteExtension(p string, d *descriptor.Descriptor, payload string) error {
	doc := fmt.Sprintf(
		`{"name": %q, "version": %q, "targetAppName": %q, "targetAppVersion": %q}`,
		d.Name, d.Version, d.TargetAppName, d.TargetAppVersion,
	)

	return WriteBundle(p, map[string][]byte{
		descriptor.Filename: []byte(doc),
		"payload.txt":       []byte(payload),
	})
}
