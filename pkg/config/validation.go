package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation via
// struct tags, with additional custom validation for rules that cannot be
// expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing the first validation failure.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	// The selected backend section must not be configured as a different
	// backend's section; a populated section for an unselected type almost
	// always means a typo in storage.type.
	populated := map[string]bool{
		"localfs":  len(cfg.Storage.Localfs) > 0,
		"memory":   len(cfg.Storage.Memory) > 0,
		"badgerfs": len(cfg.Storage.Badgerfs) > 0,
		"s3":       len(cfg.Storage.S3) > 0,
	}
	for name, present := range populated {
		if present && name != cfg.Storage.Type {
			return fmt.Errorf("storage: section %q is configured but storage.type is %q", name, cfg.Storage.Type)
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
