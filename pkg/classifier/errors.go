package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the classifier service.
type APIError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("unexpected status code: %d, detail: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("unexpected status code: %d, response: %s", e.StatusCode, e.Body)
}

// Detail returns the server supplied detail message carried by err, if any.
func Detail(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail, true
	}
	return "", false
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Detail:     parseDetail(body),
		Body:       string(body),
	}
}

type errorPayload struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// parseDetail understands both `{"detail": "..."}` and the validation list
// form `{"detail": [{"msg": "..."}]}`.
func parseDetail(body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return text
	}

	var issues []validationIssue
	if err := json.Unmarshal(payload.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg != "" {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
