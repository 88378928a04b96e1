package internal

import "fmt"

// APIError is a non-200 answer from the remote completion service.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error Code: %d, %s", e.StatusCode, e.Message)
}

func fromResponse(statusCode int, e *ErrorResponse) error {
	code := ""
	if e.Error.Code != nil {
		code = fmt.Sprintf("%v", e.Error.Code)
	}
	msg := e.Error.Message
	if msg == "" {
		msg = code
	}
	return &APIError{
		StatusCode: statusCode,
		Type:       e.Error.Type,
		Code:       code,
		Message:    msg,
	}
}
