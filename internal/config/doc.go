// Package config loads runtime configuration from multiple sources (a .env
// file, environment variables, a YAML file, CLI flags) with precedence:
// CLI flags > YAML config > Environment variables > .env file > Defaults.
// It covers the HTTP server, storage driver and product registry settings.
package config
