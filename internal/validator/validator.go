package validator

import (
	"strings"
	"unicode/utf8"
)

type Integer interface {
	~int | ~int32 | ~int64
}

// Validator collects one message per input field, keyed by the field's JSON
// or query parameter name.
type Validator struct {
	Errors map[string]string
}

func New() *Validator {
	return &Validator{
		Errors: make(map[string]string),
	}
}

func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message recorded for a key.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

func (v *Validator) CheckField(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

func PermittedValue[T comparable](value T, permittedValues ...T) bool {
	for i := range permittedValues {
		if value == permittedValues[i] {
			return true
		}
	}

	return false
}

/* Return true if value is not an empty or whitespace-only string */
func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

/* Return true if value contains no more than n characters */
func MaxChars(value string, n int) bool {
	return utf8.RuneCountInString(value) <= n
}

/* Return true if min <= value <= max */
func Between[T Integer](value, min, max T) bool {
	return value >= min && value <= max
}
