package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/ext-packager/internal/config"
)

// paramsSuffix is appended to the sanitized target name.
const paramsSuffix = ".ftp.yaml"

// errIncompleteParams is returned when required remote parameters are blank.
var errIncompleteParams = errors.New("remote parameters are incomplete")

// RemoteParams are the credentials and base directory of a remote target.
type RemoteParams struct {
	Host      string `yaml:"host"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	TargetDir string `yaml:"target_dir"`
}

// Validate requires a host and a username.
func (p *RemoteParams) Validate() error {
	var missing []string

	if strings.TrimSpace(p.Host) == "" {
		missing = append(missing, "host")
	}

	if strings.TrimSpace(p.Username) == "" {
		missing = append(missing, "username")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", errIncompleteParams, strings.Join(missing, ", "))
	}

	return nil
}

// ParamsPath returns where the remote parameters of the named target are stored.
func ParamsPath(projectDir, targetName string) string {
	return filepath.Join(projectDir, SanitizeFilename(targetName)+paramsSuffix)
}

// ParamsExist reports whether parameters were saved for the named target.
func ParamsExist(projectDir, targetName string) bool {
	_, err := os.Stat(ParamsPath(projectDir, targetName))

	return err == nil
}

// LoadParams reads the parameters of the named target. A missing document yields empty
// parameters.
func LoadParams(projectDir, targetName string) (*RemoteParams, error) {
	contents, err := os.ReadFile(ParamsPath(projectDir, targetName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return new(RemoteParams), nil
		}

		return nil, fmt.Errorf("read remote parameters: %w", err)
	}

	var p RemoteParams
	if err = yaml.Unmarshal(contents, &p); err != nil {
		return nil, fmt.Errorf("decode remote parameters: %w", err)
	}

	return &p, nil
}

// SaveParams writes the parameters of the named target.
func SaveParams(projectDir, targetName string, p *RemoteParams) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode remote parameters: %w", err)
	}

	if err = os.WriteFile(ParamsPath(projectDir, targetName), data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write remote parameters: %w", err)
	}

	return nil
}

// RemoveParams deletes the parameters of the named target, ignoring a missing document.
func RemoveParams(projectDir, targetName string) error {
	err := os.Remove(ParamsPath(projectDir, targetName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove remote parameters: %w", err)
	}

	return nil
}

// SanitizeFilename replaces characters that are unsafe in file names on common platforms.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "_"
	}

	var b strings.Builder

	for _, r := range name {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimRight(b.String(), ". ")
	if out == "" {
		return "_"
	}

	return out
}
