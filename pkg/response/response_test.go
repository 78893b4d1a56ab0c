package response

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/bulk"
	"github.com/adomcp/bridge/pkg/history"
)

func TestOkBuildsSuccessEnvelope(t *testing.T) {
	env := Ok(map[string]int{"x": 1}, map[string]any{"handleId": "qh_abc"}, "a warning")
	assert.True(t, env.Success)
	assert.Equal(t, []string{}, env.Errors)
	assert.Equal(t, []string{"a warning"}, env.Warnings)
	assert.Equal(t, "qh_abc", env.Metadata["handleId"])
}

func TestErrAttachesCategoryAndCode(t *testing.T) {
	err := adoerrors.New(adoerrors.RateLimit, "too many requests").WithRetryAfter("30")
	env := Err(err, nil)
	assert.False(t, env.Success)
	assert.Equal(t, "E_RATE_LIMIT", env.Metadata["errorCode"])
	assert.Equal(t, "RATE_LIMIT", env.Metadata["errorCategory"])
	assert.Equal(t, "30", env.Metadata["retryAfter"])
	assert.Len(t, env.Errors, 1)
}

func TestErrOnUncategorizedErrorDefaultsToUpstream(t *testing.T) {
	env := Err(assertAsPlainError("boom"), nil)
	assert.Equal(t, "E_UPSTREAM", env.Metadata["errorCode"])
}

func assertAsPlainError(msg string) error {
	return &plainError{msg}
}

type plainError struct{ msg string }

func (e *plainError) Error() string { return e.msg }

func TestFromBulkResultCollectsFailedItemErrors(t *testing.T) {
	result := bulk.BulkResult{
		ItemsSelected:    2,
		ActionsCompleted: []bulk.ActionKind{bulk.ActionAssign},
		Success:          false,
		Items: []bulk.ItemResult{
			{Index: 0, ID: 101, Actions: []bulk.ActionOutcome{{Kind: bulk.ActionAssign, Outcome: history.Applied}}},
			{Index: 1, ID: 102, Actions: []bulk.ActionOutcome{{Kind: bulk.ActionAssign, Outcome: history.Failed, Error: "upstream error"}}},
		},
	}

	env := FromBulkResult(result)
	assert.False(t, env.Success)
	require := assert.New(t)
	require.Len(env.Errors, 1)
	require.Contains(env.Errors[0], "102")
	require.Contains(env.Errors[0], "upstream error")
	require.Equal(2, env.Metadata["itemsSelected"])
}
