// Package validation runs struct-tag validation over configuration structs.
//
// Field names in error messages follow the mapstructure tag, then the json
// tag, then the snake_cased Go field name, so a failing field is reported
// under the same key the operator wrote in the config file.
//
//	type Config struct {
//	    Issuer string `mapstructure:"issuer" validate:"required,url"`
//	}
//	err := validation.Validate(cfg)
package validation
