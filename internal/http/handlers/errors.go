// HTTP-layer error codes shared by all endpoints. Codes are lowercase
// snake_case; clients branch on them programmatically while the message is
// for display only.
package handlers

const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnauthorized      = "unauthorized"
	ErrCodeForbidden         = "forbidden"
	ErrCodeNotFound          = "not_found"
	ErrCodeConflict          = "conflict"
	ErrCodeRateLimited       = "too_many_requests"
	ErrCodeInternal          = "internal_error"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
	ErrCodeValidation        = "validation_failed"
	ErrCodeRemoteUnavailable = "remote_unavailable"
	ErrCodeRemoteRejected    = "remote_rejected"

	// Domain-specific:
	ErrCodeCheckoutInProgress = "checkout_in_progress"
)
