package types

// API error codes. The prefix names the resource, the suffix the HTTP status.
const (
	CodeDeviceTypeNotFound = "DEVICE_TYPE_404"
	CodeDeviceBadRequest   = "DEVICE_400"
	CodeDeviceNotFound     = "DEVICE_404"
	CodeDeviceInvalid      = "DEVICE_422"
	CodeDeviceStorage      = "DEVICE_500"
	CodeFieldInvalid       = "FIELD_400"
	CodeFieldLocked        = "FIELD_409"
	CodeValueInvalid       = "VALUE_422"
	CodeSessionBadRequest  = "SESSION_400"
	CodeSessionNotFound    = "SESSION_404"
	CodeSessionConflict    = "SESSION_409"
	CodePortsUnavailable   = "PORTS_500"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds the error payload every handler returns.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}
