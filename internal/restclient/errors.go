package restclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from a remote service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote status %d: %s", e.StatusCode, e.Message)
}

// UserMessage returns the message the service meant for the end user, if any.
func (e *APIError) UserMessage() string {
	return e.Message
}

// errorBody covers the error shapes the account and billing services emit.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Errors  []struct {
		Description string `json:"description"`
		Message     string `json:"message"`
	} `json:"errors"`
}

func newAPIError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return apiErr
	}
	switch {
	case strings.TrimSpace(body.Message) != "":
		apiErr.Message = strings.TrimSpace(body.Message)
	case strings.TrimSpace(body.Error) != "":
		apiErr.Message = strings.TrimSpace(body.Error)
	case len(body.Errors) > 0:
		first := body.Errors[0]
		apiErr.Message = strings.TrimSpace(first.Description)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(first.Message)
		}
	}
	return apiErr
}
