// Package resolver determines configuration values by checking sources in a
// fixed priority order: a directly supplied value, a configuration mapping,
// an environment variable, and finally a default. Environment-sourced strings
// are coerced to a requested target type, sensitive values are masked before
// they reach the log, and every lookup records which source won.
package resolver
