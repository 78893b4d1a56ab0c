package response

import "github.com/adomcp/bridge/pkg/wiql"

// FromWiqlResult flattens a C3 Execute call into the canonical envelope
// (spec §4.7 applied to §4.3's result shape).
func FromWiqlResult(result wiql.Result) Envelope {
	metadata := map[string]any{
		"handleId": result.HandleID,
		"hasMore":  result.HasMore,
	}
	return Ok(result.Preview, metadata, result.Warnings...)
}
