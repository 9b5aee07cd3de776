// Package config loads the service's own runtime settings from multiple
// sources (CLI flags, a YAML file, environment variables) with precedence:
// CLI flags > YAML config > Environment variables > Defaults. The chain is
// executed by the core resolver package, so the service configures itself
// with the same machinery it exposes.
package config
