package hrclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorBody covers both the backend's own error envelope and the framework's
// default {"detail": ...} shape. detail may also be a list of validation
// errors, which is why it stays raw.
type errorBody struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"error_code"`
	Detail    json.RawMessage `json:"detail"`
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func classifyResponse(o *outbound, resp *Response) *RequestError {
	kind := KindClientError
	if resp.Status >= 500 {
		kind = KindServerError
	}

	return &RequestError{
		Kind:    kind,
		Status:  resp.Status,
		Body:    resp.Body,
		Message: extractMessage(resp.Body),
		Method:  o.method,
		Path:    o.path,
	}
}

// extractMessage picks the most specific human readable reason from body.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}

	if len(eb.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(eb.Detail, &detail); err == nil && detail != "" {
			return detail
		}

		var details []validationDetail
		if err := json.Unmarshal(eb.Detail, &details); err == nil && len(details) > 0 {
			msgs := make([]string, 0, len(details))
			for _, d := range details {
				if len(d.Loc) > 0 {
					msgs = append(msgs, fmt.Sprintf("%v: %s", d.Loc[len(d.Loc)-1], d.Msg))
					continue
				}
				msgs = append(msgs, d.Msg)
			}
			return strings.Join(msgs, "; ")
		}
	}

	return eb.Error
}

// tokenEnvelope accepts both the sign-in shape {"tokens": {"access_token"}} and
// the refresh shape {"access_token"}.
type tokenEnvelope struct {
	AccessToken string `json:"access_token"`
	Tokens      *struct {
		AccessToken string `json:"access_token"`
	} `json:"tokens"`
}

// AccessTokenFrom extracts the access token from a sign-in or refresh
// response body. The nested tokens.access_token wins when both are present.
func AccessTokenFrom(body []byte) (string, error) {
	var env tokenEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	if env.Tokens != nil && env.Tokens.AccessToken != "" {
		return env.Tokens.AccessToken, nil
	}
	if env.AccessToken != "" {
		return env.AccessToken, nil
	}
	return "", ErrRefreshNoToken
}

func statusLabel(status int) string {
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("%d %s", status, text)
	}
	return fmt.Sprintf("%d", status)
}
