package errors

const (
	HttpInternalError           = "internal_error"
	HttpInvalidParameterError   = "invalid_parameter"
	HttpUnknownViewError        = "unknown_view"
	HttpCatalogUnavailableError = "catalog_unavailable"
	HttpUnauthorizedError       = "unauthorized"
)

// ErrorResponse is the error response body for dashboard API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
