package core

import (
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	MinPasswordLength = 6

	// MaxPasswordLength is in bytes, the most bcrypt accepts
	MaxPasswordLength = 72
)

// NormalizeEmail trims surrounding whitespace. Lookups compare case-insensitively.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// ValidateCredentials checks a registration request and returns every
// failure as its own entry, or nil.
func ValidateCredentials(in Credentials) error {
	var out ValidationErrors

	email := NormalizeEmail(in.Email)
	if err := validation.Validate(email, validation.Required); err != nil {
		out = append(out, FieldError{Code: CodeEmailRequired, Description: "email is required"})
	} else if err := validation.Validate(email, is.Email); err != nil {
		out = append(out, FieldError{Code: CodeInvalidEmail, Description: "email '" + email + "' is invalid"})
	}

	if err := validation.Validate(in.Password, validation.Required); err != nil {
		out = append(out, FieldError{Code: CodePasswordRequired, Description: "password is required"})
	} else {
		out = append(out, PasswordPolicyErrors(in.Password)...)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidateLogin only checks presence. Format failures on login are reported
// the same way as a wrong password.
func ValidateLogin(in Credentials) error {
	return validation.Errors{
		"email":    validation.Validate(NormalizeEmail(in.Email), validation.Required),
		"password": validation.Validate(in.Password, validation.Required),
	}.Filter()
}

// PasswordPolicyErrors lists every rule the password breaks
func PasswordPolicyErrors(password string) []FieldError {
	var out []FieldError

	if err := validation.Validate(password, validation.RuneLength(MinPasswordLength, 0)); err != nil {
		out = append(out, FieldError{
			Code:        CodePasswordTooShort,
			Description: "passwords must be at least 6 characters",
		})
	}
	if len(password) > MaxPasswordLength {
		out = append(out, FieldError{
			Code:        CodePasswordTooLong,
			Description: "passwords must be at most 72 bytes",
		})
	}

	var digit, lower, upper, other bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			other = true
		}
	}

	if !digit {
		out = append(out, FieldError{
			Code:        CodePasswordRequiresDigit,
			Description: "passwords must have at least one digit ('0'-'9')",
		})
	}
	if !lower {
		out = append(out, FieldError{
			Code:        CodePasswordRequiresLower,
			Description: "passwords must have at least one lowercase ('a'-'z')",
		})
	}
	if !upper {
		out = append(out, FieldError{
			Code:        CodePasswordRequiresUpper,
			Description: "passwords must have at least one uppercase ('A'-'Z')",
		})
	}
	if !other {
		out = append(out, FieldError{
			Code:        CodePasswordRequiresNonAlphanumeric,
			Description: "passwords must have at least one non alphanumeric character",
		})
	}

	return out
}

// DuplicateUserName is the list entry reported when the email is taken
func DuplicateUserName(email string) FieldError {
	return FieldError{
		Code:        CodeDuplicateUserName,
		Description: "username '" + email + "' is already taken",
	}
}
