package bulk

import (
	"github.com/adomcp/bridge/pkg/handle"
	"github.com/adomcp/bridge/pkg/history"
)

// ActionOutcome is one action's terminal result for one item.
type ActionOutcome struct {
	Kind       ActionKind
	SequenceNo uint64
	Outcome    history.Outcome
	Reason     string // "dry-run", "low-confidence", "cancelled", "conflict", ai decision summary, ...
	Error      string
}

// ItemResult accumulates every action outcome for one resolved item, in
// the order actions were declared (spec §5 "actions run in the order
// declared").
type ItemResult struct {
	Index   int
	ID      int
	Actions []ActionOutcome
}

// BulkResult is what Execute returns (spec §4.6 "Partial failure").
type BulkResult struct {
	ItemsSelected    int
	ActionsCompleted []ActionKind
	Items            []ItemResult
	Preview          []handle.ItemContext // dry-run preview, bounded by MaxPreviewItems; empty outside dry-run
	Errors           []string
	Success          bool
}

// computeSuccess implements spec §4.6's partial-failure rule verbatim:
// with StopOnError != Never, success means no item had any action result
// in failed; with StopOnError == Never, success means at least one item
// completed at least one action.
func computeSuccess(items []ItemResult, stopOnError StopOnError) bool {
	if stopOnError != StopOnErrorNever {
		for _, it := range items {
			for _, a := range it.Actions {
				if a.Outcome == history.Failed {
					return false
				}
			}
		}
		return true
	}
	for _, it := range items {
		for _, a := range it.Actions {
			if a.Outcome == history.Applied {
				return true
			}
		}
	}
	return false
}
