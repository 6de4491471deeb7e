// Package config resolves service settings (listen port, delivery options
// file, rate limits, search budget, metrics) from a YAML file, environment
// variables and CLI flags. Precedence is CLI flags > YAML config >
// environment variables > defaults.
package config
