package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
)

var (
	statusTag  = "attendancestatus"
	statusText = "invalid attendance status"
)

// InitValidators registers the attendance package's custom validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}
