package core

import "errors"

// User errors
var (
	ErrUserExists         = errors.New("user already exists")  // 400, reported inside ErrValidationFailed
	ErrUserNotFound       = errors.New("user not found")       // 404 Not Found
	ErrInvalidCredentials = errors.New("incorrect login")      // 400 Bad Request
	ErrValidationFailed   = errors.New("validation failed")    // 400 Bad Request
	ErrInvalidBody        = errors.New("invalid request body") // 400 Bad Request
)

// Token and access errors
var (
	ErrUnauthenticated   = errors.New("unauthenticated")                                         // 401
	ErrMissingToken      = errors.New("missing authorization token")                             // 401
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Bearer <token>'") // 401
	ErrTokenMalformed    = errors.New("token is malformed or has an invalid signature")          // 401
	ErrTokenExpired      = errors.New("token is expired")                                        // 401
	ErrForbidden         = errors.New("forbidden")                                               // 403
)

// Config errors (server-side configuration)
var (
	ErrStoreRequired       = errors.New("credential store is required") // 500
	ErrHTTPAdapterRequired = errors.New("http adapter is required")     // 500
	ErrSecretRequired      = errors.New("secret is required")           // 500
	ErrSecretTooShort      = errors.New("secret too short")             // 500
)

// Validation error codes
const (
	CodeInvalidEmail                    = "InvalidEmail"
	CodeEmailRequired                   = "EmailRequired"
	CodePasswordRequired                = "PasswordRequired"
	CodeDuplicateUserName               = "DuplicateUserName"
	CodePasswordTooShort                = "PasswordTooShort"
	CodePasswordTooLong                 = "PasswordTooLong"
	CodePasswordRequiresDigit           = "PasswordRequiresDigit"
	CodePasswordRequiresLower           = "PasswordRequiresLower"
	CodePasswordRequiresUpper           = "PasswordRequiresUpper"
	CodePasswordRequiresNonAlphanumeric = "PasswordRequiresNonAlphanumeric"
)

// FieldError is one entry of a structured error list returned to clients
type FieldError struct {
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
}

// ValidationErrors is a list of field errors that unwraps to ErrValidationFailed
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ErrValidationFailed.Error()
	}
	msg := ErrValidationFailed.Error() + ": " + v[0].Description
	for _, fe := range v[1:] {
		msg += "; " + fe.Description
	}
	return msg
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// LoginFailure is the single, undifferentiated error list returned on a failed login
func LoginFailure() []FieldError {
	return []FieldError{{Description: ErrInvalidCredentials.Error()}}
}

// ErrorResponse represents a single-message error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
