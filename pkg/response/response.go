// Package response implements the Response Builder (C7): normalizes
// every returned envelope to the shape spec §4.7 defines, regardless of
// which component (C3/C4/C6) produced the underlying result, and assigns
// each adoerrors.Category a short, stable, programmatic code.
package response

import (
	"errors"

	"github.com/adomcp/bridge/pkg/adoerrors"
)

// Envelope is the canonical shape every MCP tool result is normalized to
// (spec §4.7 "{success, data, metadata, errors, warnings}").
type Envelope struct {
	Success  bool           `json:"success"`
	Data     any            `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
}

// codes assigns each category a short, stable code for programmatic
// handling (spec §4.7).
var codes = map[adoerrors.Category]string{
	adoerrors.Validation:       "E_VALIDATION",
	adoerrors.NotFound:         "E_NOT_FOUND",
	adoerrors.Auth:             "E_AUTH",
	adoerrors.AuthForbidden:    "E_AUTH_FORBIDDEN",
	adoerrors.Conflict:         "E_CONFLICT",
	adoerrors.Precondition:     "E_PRECONDITION",
	adoerrors.RateLimit:        "E_RATE_LIMIT",
	adoerrors.Upstream:         "E_UPSTREAM",
	adoerrors.Network:          "E_NETWORK",
	adoerrors.Business:         "E_BUSINESS",
	adoerrors.AIUnavailable:    "E_AI_UNAVAILABLE",
	adoerrors.QueryUnsupported: "E_QUERY_UNSUPPORTED",
}

// Code returns cat's short stable code, or "" if cat is not one of the
// categories this codebase produces.
func Code(cat adoerrors.Category) string {
	return codes[cat]
}

// Ok builds a success envelope. metadata and warnings may be nil/empty.
func Ok(data any, metadata map[string]any, warnings ...string) Envelope {
	return Envelope{
		Success:  true,
		Data:     data,
		Metadata: metadata,
		Errors:   []string{},
		Warnings: nonNil(warnings),
	}
}

// Err builds a failure envelope from a single categorized error (spec
// §4.7). The error's category and short code are always attached to
// metadata; RetryAfter (RATE_LIMIT only) is attached when present.
func Err(err error, metadata map[string]any, warnings ...string) Envelope {
	cat := adoerrors.CategoryOf(err)
	if metadata == nil {
		metadata = make(map[string]any, 2)
	}
	metadata["errorCode"] = Code(cat)
	metadata["errorCategory"] = string(cat)

	var adoErr *adoerrors.Error
	if errors.As(err, &adoErr) && adoErr.RetryAfter != "" {
		metadata["retryAfter"] = adoErr.RetryAfter
	}

	return Envelope{
		Success:  false,
		Metadata: metadata,
		Errors:   []string{err.Error()},
		Warnings: nonNil(warnings),
	}
}

// Partial builds an envelope whose success is determined by the caller
// (e.g. C6's per-item partial-failure accounting) rather than derived
// from a single error.
func Partial(success bool, data any, errs []string, metadata map[string]any, warnings ...string) Envelope {
	return Envelope{
		Success:  success,
		Data:     data,
		Metadata: metadata,
		Errors:   nonNil(errs),
		Warnings: nonNil(warnings),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
