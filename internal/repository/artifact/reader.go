package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/oshokin/ext-packager/internal/domain/descriptor"
)

// maxDescriptorSize caps how much of the descriptor entry is read into memory.
const maxDescriptorSize = 1 << 20

var (
	// ErrNotAnExtension is returned when the file is not a zip bundle or has no descriptor entry.
	ErrNotAnExtension = errors.New("not an extension artifact")
	// errDescriptorTooLarge is returned for descriptor entries above maxDescriptorSize.
	errDescriptorTooLarge = errors.New("descriptor entry is too large")
)

// Read extracts and validates the descriptor of the artifact at path.
// It returns ErrNotAnExtension when the file is not a bundle or lacks the descriptor, and
// descriptor.ErrMalformedDescriptor when the descriptor is present but invalid.
func Read(artifactPath string) (*descriptor.Descriptor, error) {
	archive, err := zip.OpenReader(filepath.Clean(artifactPath))
	if err != nil {
		if errors.Is(err, zip.ErrFormat) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s", ErrNotAnExtension, artifactPath)
		}

		return nil, fmt.Errorf("open artifact: %w", err)
	}

	defer func() {
		_ = archive.Close()
	}()

	return readDescriptor(&archive.Reader, artifactPath)
}

// ReadFrom extracts the descriptor from an already opened bundle of the given size.
func ReadFrom(r io.ReaderAt, size int64, name string) (*descriptor.Descriptor, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAnExtension, name)
	}

	return readDescriptor(archive, name)
}

// readDescriptor locates the descriptor entry at the bundle root and parses it.
func readDescriptor(archive *zip.Reader, name string) (*descriptor.Descriptor, error) {
	var entry *zip.File

	for _, f := range archive.File {
		if path.Clean(f.Name) == descriptor.Filename {
			entry = f
			break
		}
	}

	if entry == nil {
		return nil, fmt.Errorf("%w: %s has no %s", ErrNotAnExtension, name, descriptor.Filename)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", descriptor.ErrMalformedDescriptor, descriptor.Filename, err)
	}

	defer func() {
		_ = rc.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(rc, maxDescriptorSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", descriptor.ErrMalformedDescriptor, descriptor.Filename, err)
	}

	if len(data) > maxDescriptorSize {
		return nil, fmt.Errorf("%w: %w", descriptor.ErrMalformedDescriptor, errDescriptorTooLarge)
	}

	d, err := descriptor.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return d, nil
}

// Exists reports whether path names a regular file.
func Exists(p string) bool {
	info, err := os.Stat(p)

	return err == nil && info.Mode().IsRegular()
}
