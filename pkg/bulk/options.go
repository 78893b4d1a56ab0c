package bulk

import "github.com/adomcp/bridge/pkg/handle"

// StopOnError controls how a failed action for one item affects the rest
// of the run: a 3-way enum rather than a bool, matching spec §4.6 step 4's
// three distinct behaviors verbatim.
type StopOnError string

const (
	// StopOnErrorNever keeps going regardless of failures; this is also
	// the value that flips BulkResult.Success's definition (spec §4.6
	// "Partial failure").
	StopOnErrorNever StopOnError = "never"
	// StopOnErrorPerItem aborts the remaining actions for an item once
	// one of its actions fails, but other items continue normally.
	StopOnErrorPerItem StopOnError = "per-item"
	// StopOnErrorAll aborts the entire run — no further items, no
	// further actions — once any single action fails for any item.
	StopOnErrorAll StopOnError = "all"
)

// Options mirrors spec §4.6's `options = {dryRun, stopOnError,
// maxPreviewItems, perItemConcurrency}`, plus the AI confidence gate
// named in the AI-assisted actions paragraph.
type Options struct {
	DryRun             bool
	StopOnError        StopOnError
	MaxPreviewItems    int
	PerItemConcurrency int
	MinConfidenceScore float64
}

// previewItems returns up to n items from h's ItemContext, in resolved
// order, used for the dry-run preview (spec §4.6 step 1).
func previewItems(h *handle.QueryHandle, resolved []handle.IndexID, n int) []handle.ItemContext {
	if n <= 0 || n > len(resolved) {
		n = len(resolved)
	}
	out := make([]handle.ItemContext, 0, n)
	for _, ri := range resolved[:n] {
		out = append(out, h.WorkItemContextByID[ri.ID])
	}
	return out
}
