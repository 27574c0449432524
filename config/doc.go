// Package config loads service configuration from a YAML file, an optional
// .env file and the process environment.
//
// Resolution order, lowest to highest precedence: config.yml, .env, real
// environment variables. Environment keys are matched against nested config
// keys by trying every dotted split of the upper-cased name, so
// OIDC_ISSUER_URL can land on oidc.issuer_url. Durations ("30s") and
// comma-separated lists ("RS256,ES256") decode into time.Duration and
// []string fields.
//
//	var cfg MyConfig
//	err := config.Load("oidc-demo", &cfg)
package config
