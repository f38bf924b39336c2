// Package config loads the job orchestrator's configuration from built-in
// defaults overlaid with environment variables.
package config
