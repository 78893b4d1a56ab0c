package adoclient

import (
	"encoding/json"

	"github.com/adomcp/bridge/pkg/adoerrors"
)

// adoErrorBody is the shape ADO returns on error responses; fields beyond
// message/typeKey are ignored (spec §4.1 "typed error carrying
// {statusCode, adoErrorCode?, message}").
type adoErrorBody struct {
	Message string `json:"message"`
	TypeKey string `json:"typeKey"`
}

// errorForStatus maps a non-2xx ADO response to a categorized *adoerrors.Error
// per the normative table in spec §4.1.
func errorForStatus(status int, retryAfter string, body []byte) *adoerrors.Error {
	cat := adoerrors.FromHTTPStatus(status)

	message := httpStatusFallbackMessage(status)
	var parsed adoErrorBody
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		message = parsed.Message
	}

	err := adoerrors.New(cat, message)
	if retryAfter != "" {
		err = err.WithRetryAfter(retryAfter)
	}
	return err
}

func httpStatusFallbackMessage(status int) string {
	switch status {
	case 401:
		return "ado request unauthorized"
	case 403:
		return "ado request forbidden"
	case 404:
		return "ado resource not found"
	case 409:
		return "ado request conflict (possible revision mismatch)"
	case 412:
		return "ado precondition failed"
	case 429:
		return "ado request rate limited"
	default:
		if status >= 500 {
			return "ado upstream error"
		}
		return "ado request rejected"
	}
}
