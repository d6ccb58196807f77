// Package config loads the ddsguard application configuration.
//
// Configuration comes from a YAML file decoded on top of Defaults, followed by
// environment variable overrides, followed by validation:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("ddsguard.yaml")
//
// # Environment Variable Overrides
//
// Variables follow the naming convention DDSGUARD_SECTION_FIELD:
//
//   - DDSGUARD_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - DDSGUARD_EVIDENCE_POSTGRES_DSN overrides evidence.postgres.dsn
//   - DDSGUARD_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Values that cannot be parsed are reported as errors rather than ignored.
//
// # Validation
//
// Validate collects every failed rule into a ValidationError so a broken file
// is reported in one pass:
//
//	var verr config.ValidationError
//	if errors.As(err, &verr) {
//	    for _, fe := range verr.Errors {
//	        fmt.Println(fe.Field, fe.Message)
//	    }
//	}
//
// The risk indicator reference data is not part of this configuration; see
// package indicators. engine.indicators_path points at it.
//
// # Global Configuration
//
// The CLI loads and publishes the configuration with Initialize, passing
// flag overrides that are validated with the file. GetConfig returns the
// published value. Library packages take explicit config values.
package config
