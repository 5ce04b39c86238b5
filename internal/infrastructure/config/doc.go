// Package config provides 12-factor configuration management for the
// computer-agent controller.
//
// Values are layered: built-in defaults, then an optional YAML file
// (CONFIG_FILE), then environment variables. CLI flags in cmd/server override
// the result.
//
// Configuration Sections:
//   - Server: listen address, API prefix, response compression
//   - Provider: remote computer provider endpoint, key, timeouts, retries
//   - Agent: model endpoint, key, model name, step bound, display size
//   - Session: default start URL, per-call timeout, settle delay
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	if err := cfg.Validate(); err != nil {
//		return err
//	}
//
// Environment Variables:
//   - PORT, HOST, API_PREFIX, GZIP
//   - SCRAPYBARA_API_URL, SCRAPYBARA_API_KEY, PROVIDER_TIMEOUT, PROVIDER_RETRIES,
//     PROVIDER_RPS, PROVIDER_READY_TIMEOUT, INSTANCE_TIMEOUT_HOURS
//   - AGENT_API_URL, OPENAI_API_KEY, AGENT_MODEL, AGENT_MAX_STEPS,
//     AGENT_TURN_TIMEOUT, DISPLAY_WIDTH, DISPLAY_HEIGHT
//   - DEFAULT_START_URL, SESSION_CALL_TIMEOUT, SESSION_SETTLE_DELAY
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
