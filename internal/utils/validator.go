// internal/utils/validator.go
package utils

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("log_level", validateLogLevel)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logrus.ParseLevel(fl.Field().String())
	return err == nil
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "url":
		return e.Field() + " must be an absolute URL"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	case "log_level":
		return e.Field() + " must be a logrus level (trace, debug, info, warn, error, fatal, panic)"
	default:
		return e.Field() + " is invalid"
	}
}
