// Package config loads convo-gateway configuration from a YAML file with
// ${VAR} environment expansion, duration parsing, and validation.
package config
