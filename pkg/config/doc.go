// Package config loads the finsim service configuration.
//
// Configuration comes exclusively from environment variables (FINSIM_*
// for the service, OTEL_* and LOG_* for telemetry), is validated once at
// startup, and is immutable afterward. Load returns the full Config with
// the nested telemetry configuration already resolved via
// telemetry.FromEnv.
package config
