// Package config loads deployment configuration from YAML with environment
// overrides, fills defaults, and validates the result before a store opens.
package config
