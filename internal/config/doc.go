// Package config defines application settings used by the ext-packager CLI and
// provides helpers to load, validate and save them in YAML format.
//
// Settings are read through viper so that every key can be overridden with an
// EXTPKG_-prefixed environment variable.
package config
