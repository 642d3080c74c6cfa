package errors

// ErrorResponse is the body written for failed API requests
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Display       string                 `json:"display"`
	InternalError string                 `json:"internal_error,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse builds the API body for err, preferring the hint as the display message
func NewErrorResponse(err error) ErrorResponse {
	display := GetHint(err)
	if display == "" {
		display = "An unexpected error occurred"
	}
	details := GetReportableDetails(err)
	if len(details) == 0 {
		details = nil
	}
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display:       display,
			InternalError: err.Error(),
			Details:       details,
		},
	}
}
