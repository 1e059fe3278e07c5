package types

import "fmt"

// CustomError is the error shape returned by the fiber error handler.
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("%d: %s [type: %s]", e.Code, e.Message, e.Type)
}

// NewCustomError builds a CustomError with the given status code, message and type tag.
func NewCustomError(code int, message, errorType string) *CustomError {
	return &CustomError{Code: code, Message: message, Type: errorType}
}
