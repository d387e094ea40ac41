package constants

const (
	// Transport error codes shared by every handler
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"

	// Registration field error codes
	FieldErrRequired         = "required"
	FieldErrInvalidEmail     = "invalid_email"
	FieldErrTooLong          = "too_long"
	FieldErrPasswordTooShort = "password_too_short"
	FieldErrDuplicateEmail   = "duplicate_email"
	FieldErrInvalidImage     = "invalid_image"
	FieldErrImageUnavailable = "image_unavailable"
)
