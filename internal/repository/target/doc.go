// Package target persists distribution targets and their remote transport parameters.
//
// Targets live in update_sources.json next to the project file. Remote parameters are kept per
// target in a small YAML document named after the sanitized target name.
package target
