package contextutils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Language codes are letters, digits and hyphens, e.g. "en", "zh-CN", "ceb".
	_ = v.RegisterValidation("langcode", func(fl validator.FieldLevel) bool {
		code := fl.Field().String()
		if len(code) < 2 || len(code) > 10 {
			return false
		}
		for _, char := range code {
			if (char < 'a' || char > 'z') && (char < 'A' || char > 'Z') && (char < '0' || char > '9') && char != '-' {
				return false
			}
		}
		return true
	})
	return v
}

// IsValidLanguageCode checks that a language code is well formed using go-playground/validator.
// It says nothing about whether a translation provider supports the language.
func IsValidLanguageCode(code string) bool {
	return validate.Var(code, "langcode") == nil
}

// ValidateStruct validates a struct against its `validate` tags and returns an
// INVALID_INPUT AppError listing every failing field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return WrapError(err, "validation failed")
	}

	problems := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		if fe.Param() != "" {
			problems = append(problems, fmt.Sprintf("%s failed '%s=%s'", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			problems = append(problems, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
		}
	}

	return NewAppErrorWithCause(ErrorCodeInvalidInput, SeverityError, "Validation failed", strings.Join(problems, "; "), err)
}
