// Package config handles configuration loading for shell-bridge.
//
// # Configuration File
//
// Location (first match wins):
//
//  1. Path from the SHELL_BRIDGE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/shell-bridge/config.yaml
//  3. ~/.config/shell-bridge/config.yaml
//
// Files ending in .toml are parsed as TOML; anything else is YAML. Keys left
// out keep the values from Default.
//
// # Environment Variable Expansion
//
//	auth:
//	  jwt_secret: "${SHELL_BRIDGE_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Durations use time.ParseDuration syntax:
//
//	services:
//	  clock:
//	    interval: "500ms"
//	host_api:
//	  dedupe_ttl: "5m"
//
// # Reloading
//
// Watcher reloads the file on write or create events in its directory. The
// shell-bridge binary uses it to change the log level without a restart.
package config
