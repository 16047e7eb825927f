package validation

import (
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const MinPasswordLength = 8

// Password - правило ozzo для пароля: не короче 8 символов,
// заглавная и строчная буквы, цифра.
var Password = validation.By(func(value interface{}) error {
	raw, _ := validation.Indirect(value)
	password, _ := raw.(string)
	if len(password) < MinPasswordLength {
		return validation.NewError("validation_password_length", "пароль должен быть не менее 8 символов")
	}

	var hasUpper, hasLower, hasNumber bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	switch {
	case !hasUpper:
		return validation.NewError("validation_password_upper", "пароль должен содержать хотя бы одну заглавную букву")
	case !hasLower:
		return validation.NewError("validation_password_lower", "пароль должен содержать хотя бы одну строчную букву")
	case !hasNumber:
		return validation.NewError("validation_password_digit", "пароль должен содержать хотя бы одну цифру")
	}
	return nil
})

// ValidatePassword проверяет пароль при регистрации.
func ValidatePassword(password string) error {
	return validation.Validate(password, Password)
}
