package form

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
)

var (
	fieldTypeTag  = "fieldtype"
	fieldTypeText = "invalid field type"

	optionsRequiredTag  = "optionsrequired"
	optionsRequiredText = "choice fields require a non-empty options list"

	duplicateLabelTag  = "duplicatelabel"
	duplicateLabelText = "field labels must be unique within a schema"
)

// InitValidators registers the form package's custom validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(fieldTypeTag, fieldTypeValidation)
	core.RegisterCustomTranslation(validate, translator, fieldTypeTag, fieldTypeText)

	validate.RegisterStructValidation(schemaFieldsStructValidation, NewSchema{})
	validate.RegisterStructValidation(schemaFieldsStructValidation, UpdateSchema{})
	core.RegisterCustomTranslation(validate, translator, optionsRequiredTag, optionsRequiredText)
	core.RegisterCustomTranslation(validate, translator, duplicateLabelTag, duplicateLabelText)
}

// Custom Validators

// fieldTypeValidation checks that the declared type is a known FieldType.
func fieldTypeValidation(fl validator.FieldLevel) bool {
	return FieldType(fl.Field().String()).Valid()
}

// schemaFieldsStructValidation does struct level validation of a schema's
// field list: unique labels, and options present on choice fields.
func schemaFieldsStructValidation(sl validator.StructLevel) {
	var fields []NewField
	switch s := sl.Current().Interface().(type) {
	case NewSchema:
		fields = s.Fields
	case UpdateSchema:
		fields = s.Fields
	}

	validateFieldList(fields, sl)
}

func validateFieldList(fields []NewField, sl validator.StructLevel) {
	seen := make(map[string]bool, len(fields))
	for _, fld := range fields {
		if seen[fld.Label] {
			sl.ReportError(fld.Label, "fields", "Fields", duplicateLabelTag, "")
			return
		}
		seen[fld.Label] = true

		if fld.Type.RequiresOptions() && len(fld.Options) == 0 {
			sl.ReportError(fld.Options, "fields", "Fields", optionsRequiredTag, "")
			return
		}
	}
}
