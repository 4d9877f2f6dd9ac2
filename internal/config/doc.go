// Package config defines daemon settings and provides helpers to load,
// validate and save them in YAML format.
//
// All scheduling knobs (horizon, cooldown, fallback, snooze, recovery grace)
// carry reference defaults so the daemon runs with no configuration file.
package config
