package auth

import (
	"fmt"
	"strings"
)

// AvatarSource holds the avatar options of a registration. At most one is
// used, in the order File, Base64, URL.
type AvatarSource struct {
	File   []byte
	Base64 string
	URL    string
}

func (a AvatarSource) IsEmpty() bool {
	return len(a.File) == 0 && strings.TrimSpace(a.Base64) == "" && strings.TrimSpace(a.URL) == ""
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Avatar    AvatarSource
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError lists every problem found with a registration.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Code))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, code, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) Has(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}

func fieldError(field, code, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, code, message)
	return v
}
