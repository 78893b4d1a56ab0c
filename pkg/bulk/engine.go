package bulk

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/collab"
	"github.com/adomcp/bridge/pkg/handle"
	"github.com/adomcp/bridge/pkg/history"
)

const defaultPerItemConcurrency = 8

// Engine is C6, wired against C1 (adoclient), C4 (handle), C5 (history),
// and the LLM sampling collaborator for the three AI-assisted action
// kinds (spec §4.6).
type Engine struct {
	client  *adoclient.Client
	store   *handle.Store
	history *history.Store
	sampler collab.LLMSamplingChannel
	clock   collab.Clock
	logger  collab.Logger
}

// New constructs an Engine. sampler may be nil; AI-assisted actions then
// fail with AI_UNAVAILABLE instead of panicking (spec §6).
func New(client *adoclient.Client, store *handle.Store, hist *history.Store, sampler collab.LLMSamplingChannel, clock collab.Clock, logger collab.Logger) *Engine {
	return &Engine{client: client, store: store, history: hist, sampler: sampler, clock: clock, logger: logger}
}

// Execute runs every action in order against the items sel resolves
// within handleID (spec §4.6 "Contract"). Actions are serialized; within
// one action, items are processed with bounded concurrency.
func (e *Engine) Execute(ctx context.Context, handleID string, sel handle.ItemSelector, actions []Action, opts Options) (BulkResult, error) {
	if len(actions) == 0 {
		return BulkResult{}, adoerrors.New(adoerrors.Validation, "bulk execute requires at least one action")
	}

	h, err := e.store.Get(handleID)
	if err != nil {
		return BulkResult{}, err
	}
	resolved, err := e.store.Resolve(handleID, sel)
	if err != nil {
		return BulkResult{}, err
	}

	concurrency := opts.PerItemConcurrency
	if concurrency <= 0 {
		concurrency = defaultPerItemConcurrency
	}

	result := BulkResult{ItemsSelected: len(resolved)}

	itemsByIndex := make(map[int]*ItemResult, len(resolved))
	for _, ri := range resolved {
		itemsByIndex[ri.Index] = &ItemResult{Index: ri.Index, ID: ri.ID}
	}

	var mu sync.Mutex
	itemAborted := make(map[int]bool, len(resolved))
	var globalAbort int32

	for _, action := range actions {
		if atomic.LoadInt32(&globalAbort) == 1 || ctx.Err() != nil {
			break
		}

		var g errgroup.Group
		g.SetLimit(concurrency)

		for _, ri := range resolved {
			ri := ri

			mu.Lock()
			aborted := itemAborted[ri.Index]
			mu.Unlock()
			if aborted {
				continue
			}

			g.Go(func() error {
				if atomic.LoadInt32(&globalAbort) == 1 {
					return nil
				}

				var outcome ActionOutcome
				switch {
				case ctx.Err() != nil:
					outcome = e.skip(handleID, ri, action, "cancelled")
				case opts.DryRun:
					outcome = e.skip(handleID, ri, action, "dry-run")
				default:
					outcome = e.applyAction(ctx, handleID, h, ri, action, opts)
				}

				mu.Lock()
				itemsByIndex[ri.Index].Actions = append(itemsByIndex[ri.Index].Actions, outcome)
				if outcome.Outcome == history.Failed {
					switch opts.StopOnError {
					case StopOnErrorPerItem:
						itemAborted[ri.Index] = true
					case StopOnErrorAll:
						atomic.StoreInt32(&globalAbort, 1)
					}
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		result.ActionsCompleted = append(result.ActionsCompleted, action.Kind)
	}

	result.Items = make([]ItemResult, 0, len(resolved))
	for _, ri := range resolved {
		result.Items = append(result.Items, *itemsByIndex[ri.Index])
	}

	if opts.DryRun {
		result.Preview = previewItems(h, resolved, opts.MaxPreviewItems)
		result.Success = true
	} else {
		result.Success = computeSuccess(result.Items, opts.StopOnError)
	}
	return result, nil
}

// applyAction dispatches one action against one item, after the item has
// already passed the dry-run and cancellation checks (spec §4.6
// "Algorithm per action").
func (e *Engine) applyAction(ctx context.Context, handleID string, h *handle.QueryHandle, ri handle.IndexID, action Action, opts Options) ActionOutcome {
	switch action.Kind {
	case ActionComment:
		return e.applyComment(ctx, handleID, ri, action)
	case ActionAnalyze:
		return e.applyAnalyze(ctx, handleID, h, ri, action)
	case ActionEnhanceDescriptions:
		return e.applyEnhanceDescriptions(ctx, handleID, h, ri, action, opts)
	case ActionAssignStoryPoints:
		return e.applyAssignStoryPoints(ctx, handleID, h, ri, action, opts)
	case ActionRemove:
		if action.Destroy {
			return e.applyDestroy(ctx, handleID, ri, action)
		}
		return e.applyFieldPatch(ctx, handleID, ri, action)
	default:
		return e.applyFieldPatch(ctx, handleID, ri, action)
	}
}

// applyFieldPatch covers every action kind whose dispatch is "fetch
// pre-image, compose a JSON-Patch, PATCH with optimistic concurrency"
// (update, add-tag, remove-tag, assign, move-iteration, soft remove).
func (e *Engine) applyFieldPatch(ctx context.Context, handleID string, ri handle.IndexID, action Action) ActionOutcome {
	pre, err := e.client.GetWorkItem(ctx, ri.ID)
	if err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}
	ops, inverse, err := e.patchWithConflictRetry(ctx, ri.ID, pre, func(p adoclient.WorkItemBatchEntry) ([]adoclient.PatchOp, []adoclient.PatchOp, error) {
		return composeOps(action.Kind, action, p)
	})
	if err != nil {
		return e.fail(handleID, ri, action, ops, err)
	}
	if action.Kind == ActionMoveIteration && action.IterationComment != "" {
		_, _ = e.client.AddComment(ctx, ri.ID, action.IterationComment)
	}
	return e.applied(handleID, ri, action, ops, inverse)
}

func (e *Engine) applyComment(ctx context.Context, handleID string, ri handle.IndexID, action Action) ActionOutcome {
	created, err := e.client.AddComment(ctx, ri.ID, action.Text)
	if err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}
	return e.applied(handleID, ri, action, created.ID, created.ID)
}

func (e *Engine) applyDestroy(ctx context.Context, handleID string, ri handle.IndexID, action Action) ActionOutcome {
	if err := e.client.DeleteWorkItem(ctx, ri.ID, true); err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}
	seq := e.history.Append(history.Record{
		HandleID: handleID, Index: ri.Index, ID: ri.ID, Kind: string(action.Kind),
		AppliedAt: e.clock.Now(), Payload: action.RemoveReason, Outcome: history.Applied, Irreversible: true,
	})
	return ActionOutcome{Kind: action.Kind, SequenceNo: seq, Outcome: history.Applied}
}

// patchWithConflictRetry applies compose(pre) and, on CONFLICT/PRECONDITION,
// re-fetches the item and retries exactly once against the new rev (spec
// §4.6 step 3).
func (e *Engine) patchWithConflictRetry(ctx context.Context, id int, pre adoclient.WorkItemBatchEntry, compose func(adoclient.WorkItemBatchEntry) ([]adoclient.PatchOp, []adoclient.PatchOp, error)) ([]adoclient.PatchOp, []adoclient.PatchOp, error) {
	ops, inverse, err := compose(pre)
	if err != nil {
		return nil, nil, err
	}
	if _, err = e.client.PatchWorkItem(ctx, id, ops); err == nil {
		return ops, inverse, nil
	} else if !isConflict(err) {
		return ops, nil, err
	}

	pre2, ferr := e.client.GetWorkItem(ctx, id)
	if ferr != nil {
		return ops, nil, ferr
	}
	ops2, inverse2, cerr := compose(pre2)
	if cerr != nil {
		return ops2, nil, cerr
	}
	if _, err = e.client.PatchWorkItem(ctx, id, ops2); err != nil {
		return ops2, nil, adoerrors.Wrap(adoerrors.Conflict, "conflict persisted after retry", err)
	}
	return ops2, inverse2, nil
}

func isConflict(err error) bool {
	cat := adoerrors.CategoryOf(err)
	return cat == adoerrors.Conflict || cat == adoerrors.Precondition
}

func (e *Engine) applied(handleID string, ri handle.IndexID, action Action, payload, inverse any) ActionOutcome {
	seq := e.history.Append(history.Record{
		HandleID: handleID, Index: ri.Index, ID: ri.ID, Kind: string(action.Kind),
		AppliedAt: e.clock.Now(), Payload: payload, InversePayload: inverse, Outcome: history.Applied,
	})
	return ActionOutcome{Kind: action.Kind, SequenceNo: seq, Outcome: history.Applied}
}

func (e *Engine) fail(handleID string, ri handle.IndexID, action Action, payload any, err error) ActionOutcome {
	reason := ""
	switch {
	case isConflict(err):
		reason = "conflict"
	case adoerrors.CategoryOf(err) == adoerrors.Business:
		reason = "ai-parse"
	}
	seq := e.history.Append(history.Record{
		HandleID: handleID, Index: ri.Index, ID: ri.ID, Kind: string(action.Kind),
		AppliedAt: e.clock.Now(), Payload: payload, Outcome: history.Failed, Reason: reason, Error: err.Error(),
	})
	return ActionOutcome{Kind: action.Kind, SequenceNo: seq, Outcome: history.Failed, Reason: reason, Error: err.Error()}
}

func (e *Engine) skip(handleID string, ri handle.IndexID, action Action, reason string) ActionOutcome {
	seq := e.history.Append(history.Record{
		HandleID: handleID, Index: ri.Index, ID: ri.ID, Kind: string(action.Kind),
		AppliedAt: e.clock.Now(), Outcome: history.Skipped, Reason: reason,
	})
	return ActionOutcome{Kind: action.Kind, SequenceNo: seq, Outcome: history.Skipped, Reason: reason}
}
