package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"gigboard_backend/internal/models"
)

var usagePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,31}$`)

// registerCustomRules регистрирует кастомные правила. Ошибка регистрации -
// ошибка программиста, приложение не должно стартовать.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("failed to register custom validation tag '%s': %v", tag, err))
		}
	}

	mustRegister("is-media-type", validateMediaType)
	mustRegister("is-application-status", validateApplicationStatus)
	mustRegister("is-experience-level", validateExperienceLevel)
	mustRegister("is-upload-usage", validateUploadUsage)
}

// Пустые значения не проверяем: для этого есть 'required'

func validateMediaType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.MediaType(value).IsValid()
}

func validateApplicationStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.ApplicationStatus(value).IsValid()
}

func validateExperienceLevel(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || models.ExperienceLevel(value).IsValid()
}

func validateUploadUsage(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || usagePattern.MatchString(value)
}
