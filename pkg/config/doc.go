// Package config loads the optional YAML profile that supplies defaults for
// contained's flags, from --config or $XDG_CONFIG_HOME/contained/config.yaml.
package config
