package signer

import (
	"errors"
	"fmt"
	"strings"
)

// Policy selects which artifacts SignAll signs.
type Policy int

const (
	// SignMissing signs only artifacts without a signature file.
	SignMissing Policy = iota
	// SignMissingOrFailed also replaces signatures that do not verify.
	SignMissingOrFailed
	// SignEverything replaces every signature.
	SignEverything
)

// errUnknownPolicy is returned by ParsePolicy for unknown names.
var errUnknownPolicy = errors.New("unknown signing policy")

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case SignMissing:
		return "missing"
	case SignMissingOrFailed:
		return "missing-or-failed"
	case SignEverything:
		return "everything"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration name into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "missing", "":
		return SignMissing, nil
	case "missing-or-failed", "failed":
		return SignMissingOrFailed, nil
	case "everything", "all":
		return SignEverything, nil
	default:
		return SignMissing, fmt.Errorf("%w: %q", errUnknownPolicy, s)
	}
}
