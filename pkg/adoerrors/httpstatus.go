package adoerrors

import "net/http"

// FromHTTPStatus maps an ADO REST response status code to a Category per
// the normative table in spec §4.1: 401->AUTH, 403->AUTH_FORBIDDEN,
// 404->NOT_FOUND, 409->CONFLICT (includes PATCH revision-mismatch),
// 412->PRECONDITION, 429->RATE_LIMIT, 5xx->UPSTREAM. Any other status in
// the 4xx range that isn't named is treated as Business since it reflects
// a request ADO considered semantically invalid without naming a
// transport-level category.
func FromHTTPStatus(status int) Category {
	switch status {
	case http.StatusUnauthorized:
		return Auth
	case http.StatusForbidden:
		return AuthForbidden
	case http.StatusNotFound:
		return NotFound
	case http.StatusConflict:
		return Conflict
	case http.StatusPreconditionFailed:
		return Precondition
	case http.StatusTooManyRequests:
		return RateLimit
	}
	switch {
	case status >= 500:
		return Upstream
	case status >= 400:
		return Business
	default:
		return Upstream
	}
}
