// Package config provides configuration management for the Gridline prediction service.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCrossField checks constraints spanning multiple fields
func validateCrossField(cfg *Config) error {
	// The ranker needs enough data left over for its own validation split
	if cfg.Training.TestFraction+cfg.Models.Ranker.ValFraction >= 0.9 {
		return fmt.Errorf("training.test_fraction (%.2f) plus models.ranker.val_fraction (%.2f) leaves too little training data",
			cfg.Training.TestFraction, cfg.Models.Ranker.ValFraction)
	}

	if cfg.Training.CVFolds > len(cfg.Training.Seasons)*25 {
		return fmt.Errorf("training.cv_folds (%d) exceeds the plausible race count for %d seasons",
			cfg.Training.CVFolds, len(cfg.Training.Seasons))
	}

	return nil
}

func formatValidationErrors(errors validator.ValidationErrors) error {
	if len(errors) == 0 {
		return nil
	}
	first := errors[0]
	return fmt.Errorf("config field %s failed validation rule %q (value: %v)",
		first.Namespace(), first.Tag(), first.Value())
}
