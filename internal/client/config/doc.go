// Package config loads client settings from defaults, the environment,
// an optional JSON file and command-line flags, in that order of
// precedence.
package config
