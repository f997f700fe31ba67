// Package config loads the runtime configuration for an AgentCore
// deployment from a YAML file.
//
// The configuration selects the completion provider, tunes memory and
// sleep-time consolidation, and picks the durable store backend. Secrets and
// machine-specific paths can be supplied through environment variables
// (AGENTCORE_API_KEY, AGENTCORE_STORAGE_PATH), which override file values.
// Load validates the result; Default returns the baseline used when no file
// is provided.
package config
