package client

import (
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/tmdiniz/atende/core"
)

var (
	cpfTag  = "cpf"
	cpfText = "invalid CPF number"
)

// InitValidators registers the client package's custom validators & translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(cpfTag, cpfValidation)
	core.RegisterCustomTranslation(validate, translator, cpfTag, cpfText)
}

// cpfValidation checks the CPF check digits on the digits-only canonical form.
func cpfValidation(fl validator.FieldLevel) bool {
	return ValidCPF(fl.Field().String())
}

// ValidCPF reports whether `cpf` (digits only) is a well-formed CPF number.
func ValidCPF(cpf string) bool {
	if len(cpf) != 11 {
		return false
	}

	digits := make([]int, 11)
	allSame := true
	for i, r := range cpf {
		d, err := strconv.Atoi(string(r))
		if err != nil {
			return false
		}
		digits[i] = d
		if d != digits[0] {
			allSame = false
		}
	}
	// sequences like 000.000.000-00 pass the check digits but are not valid
	if allSame {
		return false
	}

	return digits[9] == cpfCheckDigit(digits, 9) && digits[10] == cpfCheckDigit(digits, 10)
}

// cpfCheckDigit computes the check digit at position `pos` (9 or 10) from the
// preceding digits, per the Receita Federal mod-11 scheme.
func cpfCheckDigit(digits []int, pos int) int {
	var sum int
	for i, weight := 0, pos+1; i < pos; i, weight = i+1, weight-1 {
		sum += digits[i] * weight
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}
