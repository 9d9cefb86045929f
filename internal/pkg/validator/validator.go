package validator

import (
	"github.com/go-playground/validator/v10"

	"agoffice/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		errors[err.Field()] = err.Tag()
	}
	return errors
}

// SectionNames reports unknown draft section names in a patch.
func SectionNames(names []string) []string {
	var unknown []string
	for _, name := range names {
		if !domain.IsSectionName(name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
