package form

// ValidationResult reports the outcome of checking a ResponseMap against a Schema.
type ValidationResult struct {
	MissingFields []string
}

func (r ValidationResult) Valid() bool { return len(r.MissingFields) == 0 }

// Validate checks that `responses` answers every active required field of
// `schema`. Keys not declared in the schema pass through unvalidated.
// Missing fields are reported in the schema's display order.
func Validate(schema Schema, responses ResponseMap) ValidationResult {
	var result ValidationResult
	for _, fld := range schema.ActiveFields() {
		if !fld.Required {
			continue
		}
		answer, ok := responses[fld.Label]
		if !ok || answerEmpty(answer) {
			result.MissingFields = append(result.MissingFields, fld.Label)
		}
	}
	return result
}

// answerEmpty reports whether a submitted answer counts as unanswered.
// An explicit boolean false is an answer (an unchecked checkbox was still
// seen and declined), and so is an empty list; nil, empty strings and
// numeric zero are not.
func answerEmpty(answer interface{}) bool {
	switch v := answer.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return false
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int32:
		return v == 0
	case int64:
		return v == 0
	default:
		return false
	}
}
