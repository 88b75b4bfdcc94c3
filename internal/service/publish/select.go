package publish

import (
	"fmt"
	"time"

	"github.com/oshokin/ext-packager/internal/repository/target"
)

// TransportFor returns the transport of t. Local targets write to their file URL; every other
// target uses the remote parameters saved in projectDir.
func TransportFor(t *target.Target, projectDir string, timeout time.Duration) (Transport, error) {
	if t.IsLocal() {
		dir, err := t.LocalDir()
		if err != nil {
			return nil, err
		}

		return NewLocalTransport(dir), nil
	}

	params, err := target.LoadParams(projectDir, t.Name)
	if err != nil {
		return nil, fmt.Errorf("load remote parameters of %s: %w", t.Name, err)
	}

	if err = params.Validate(); err != nil {
		return nil, fmt.Errorf("target %s: %w", t.Name, err)
	}

	return NewFTPTransport(params, WithTimeout(timeout)), nil
}
