package config

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("delimiter", validateDelimiter)
}

// validateDelimiter accepts a single rune that can separate CSV fields.
func validateDelimiter(fl validator.FieldLevel) bool {
	d := fl.Field().String()
	if utf8.RuneCountInString(d) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(d)
	return r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError
}

// validateCustom performs validation that spans several fields.
func validateCustom(cfg *Config) error {
	if cfg.Store.Backend == "s3" && cfg.S3.Bucket == "" {
		return fmt.Errorf("s3 bucket is required when store backend is s3")
	}
	if cfg.Store.Registry == "postgres" && cfg.Postgres.ConnString.Value() == "" {
		return fmt.Errorf("postgres conn_string is required when store registry is postgres")
	}
	return nil
}
