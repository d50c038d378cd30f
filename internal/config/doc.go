// Package config provides loading and environment overlay for the basin
// server configuration. Files may be JSON or YAML (by extension); BASIN_*
// environment variables overlay whatever the file set.
package config
