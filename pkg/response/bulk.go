package response

import (
	"fmt"

	"github.com/adomcp/bridge/pkg/bulk"
	"github.com/adomcp/bridge/pkg/history"
)

// FromBulkResult flattens a completed bulk.Execute call into the
// canonical envelope, collecting one error string per failed
// (item, action) pair so a caller doesn't have to walk BulkResult.Items
// itself (spec §4.6 "Partial failure" combined with §4.7).
func FromBulkResult(result bulk.BulkResult) Envelope {
	var errs []string
	for _, item := range result.Items {
		for _, a := range item.Actions {
			if a.Outcome == history.Failed {
				errs = append(errs, fmt.Sprintf("item %d (%s): %s", item.ID, a.Kind, a.Error))
			}
		}
	}

	metadata := map[string]any{
		"itemsSelected":    result.ItemsSelected,
		"actionsCompleted": result.ActionsCompleted,
	}
	if len(result.Preview) > 0 {
		metadata["previewCount"] = len(result.Preview)
	}

	return Envelope{
		Success:  result.Success,
		Data:     result,
		Metadata: metadata,
		Errors:   nonNil(errs),
		Warnings: []string{},
	}
}
