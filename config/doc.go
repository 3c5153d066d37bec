// Package config loads the adapter configuration from environment variables,
// an optional .env file and an optional config.yaml. Environment variables
// win over the YAML file, which wins over the defaults.
//
// Everything is validated once at startup, including the status acceptance
// pattern, so a malformed setting stops the process instead of surfacing on
// every request.
package config
