package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays configuration values from environment variables.
// Variables use the LASTWORD_ prefix, e.g. LASTWORD_ENDPOINT_ADDR or
// LASTWORD_SWEEP_INTERVAL=30m. Unset variables keep their current values.
// Malformed values cause a panic, matching the JSON overlay behavior.
func parseEnv(config *Config) {
	if err := env.ParseWithOptions(config, env.Options{Prefix: "LASTWORD_"}); err != nil {
		panic(err)
	}
}
