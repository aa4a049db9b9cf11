package supabase

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ErrorCodeEmailRateLimit is GoTrue's error_code for magic-link throttling
const ErrorCodeEmailRateLimit = "over_email_send_rate_limit"

// legacyRateLimitText is the message older GoTrue versions send without an
// error_code
const legacyRateLimitText = "For security purposes, you can only request this after"

// gotrue-go reports failures as "response status code %d: %s"
var statusPattern = regexp.MustCompile(`(?s)^response status code (\d+)(?:: (.*))?$`)

// ProviderError is a GoTrue failure reply
type ProviderError struct {
	Status    int
	ErrorCode string
	Message   string
}

type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// parseProviderError extracts status and body fields from a gotrue-go
// error. ok is false for transport errors.
func parseProviderError(err error) (ProviderError, bool) {
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return ProviderError{}, false
	}

	status, _ := strconv.Atoi(m[1])
	pe := ProviderError{Status: status, Message: strings.TrimSpace(m[2])}

	var body errorBody
	if m[2] != "" && json.Unmarshal([]byte(m[2]), &body) == nil {
		pe.ErrorCode = body.ErrorCode
		// Older replies put the string code in "code"
		if pe.ErrorCode == "" {
			var code string
			if json.Unmarshal(body.Code, &code) == nil {
				pe.ErrorCode = code
			}
		}
		for _, msg := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if msg != "" {
				pe.Message = msg
				break
			}
		}
	}
	if pe.Message == "" {
		pe.Message = http.StatusText(status)
	}
	return pe, true
}

// rateLimitMatch says how a reply was recognised as rate limiting
type rateLimitMatch int

const (
	notRateLimited rateLimitMatch = iota
	rateLimitedByStatus
	rateLimitedByCode
	rateLimitedByLegacyText
)

func classifyRateLimit(pe ProviderError) rateLimitMatch {
	switch {
	case pe.Status == http.StatusTooManyRequests:
		return rateLimitedByStatus
	case pe.ErrorCode == ErrorCodeEmailRateLimit:
		return rateLimitedByCode
	case strings.Contains(pe.Message, legacyRateLimitText):
		return rateLimitedByLegacyText
	default:
		return notRateLimited
	}
}
