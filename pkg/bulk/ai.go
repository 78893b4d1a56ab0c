package bulk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/collab"
	"github.com/adomcp/bridge/pkg/handle"
	"github.com/adomcp/bridge/pkg/history"
)

// aiDecision is the typed, per-item shape every AI-assisted action's
// sampling reply must parse as (spec §4.6 "AI-assisted actions"). Not
// every field is populated by every action kind.
type aiDecision struct {
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description,omitempty"`
	StoryPoints float64 `json:"storyPoints,omitempty"`
	Reasoning   string  `json:"reasoning,omitempty"`
	Summary     string  `json:"summary,omitempty"`
}

const samplingTimeout = 60 * time.Second

const enhanceDescriptionsSystemPrompt = "You rewrite Azure DevOps work item descriptions. Reply with JSON: " +
	`{"description": string, "confidence": number between 0 and 1}.`

const assignStoryPointsSystemPrompt = "You estimate Azure DevOps work item story points on the given scale. Reply with JSON: " +
	`{"storyPoints": number, "reasoning": string, "confidence": number between 0 and 1}.`

const analyzeSystemPrompt = "You analyze an Azure DevOps work item for the requested analysis types. Reply with JSON: " +
	`{"summary": string, "confidence": number between 0 and 1}.`

// sample issues a sampling request and parses the typed decision out of
// the reply. A nil sampler or a non-JSON reply both surface as a
// categorized failure rather than a panic (spec §6).
func (e *Engine) sample(ctx context.Context, systemPrompt, userPrompt string) (aiDecision, error) {
	if e.sampler == nil {
		return aiDecision{}, adoerrors.New(adoerrors.AIUnavailable, "no LLM sampling channel configured")
	}
	raw, err := e.sampler.Sample(ctx, collab.SamplingRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    1024,
		Timeout:      samplingTimeout,
	})
	if err != nil {
		return aiDecision{}, adoerrors.Wrap(adoerrors.AIUnavailable, "llm sampling failed", err)
	}
	var decision aiDecision
	if jsonErr := json.Unmarshal([]byte(raw), &decision); jsonErr != nil {
		return aiDecision{}, adoerrors.Wrap(adoerrors.Business, "ai reply did not parse as a decision", jsonErr)
	}
	return decision, nil
}

func (e *Engine) applyEnhanceDescriptions(ctx context.Context, handleID string, h *handle.QueryHandle, ri handle.IndexID, action Action, opts Options) ActionOutcome {
	item := h.WorkItemContextByID[ri.ID]
	prompt := fmt.Sprintf("Work item %d %q, style %q. Current description:\n%s",
		ri.ID, item.Title, action.DescriptionStyle, item.Description)

	decision, err := e.sample(ctx, enhanceDescriptionsSystemPrompt, prompt)
	if err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}
	if decision.Confidence < opts.MinConfidenceScore {
		return e.skip(handleID, ri, action, "low-confidence")
	}

	pre, err := e.client.GetWorkItem(ctx, ri.ID)
	if err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}
	ops, inverse, err := e.patchWithConflictRetry(ctx, ri.ID, pre, func(p adoclient.WorkItemBatchEntry) ([]adoclient.PatchOp, []adoclient.PatchOp, error) {
		o, i := composeDescriptionPatch(p, decision.Description)
		return o, i, nil
	})
	if err != nil {
		return e.fail(handleID, ri, action, ops, err)
	}
	return e.applied(handleID, ri, action, ops, inverse)
}

func (e *Engine) applyAssignStoryPoints(ctx context.Context, handleID string, h *handle.QueryHandle, ri handle.IndexID, action Action, opts Options) ActionOutcome {
	pre, err := e.client.GetWorkItem(ctx, ri.ID)
	if err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}
	if !action.OverwriteExistingPoints {
		if _, ok := pre.Fields["Microsoft.VSTS.Scheduling.StoryPoints"]; ok {
			return e.skip(handleID, ri, action, "has-existing-points")
		}
	}

	item := h.WorkItemContextByID[ri.ID]
	prompt := fmt.Sprintf("Work item %d %q, type %s, on the %q scale.\nDescription:\n%s\nAcceptance criteria:\n%s",
		ri.ID, item.Title, item.Type, action.StoryPointScale, item.Description, item.AcceptanceCriteria)

	decision, err := e.sample(ctx, assignStoryPointsSystemPrompt, prompt)
	if err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}
	if decision.Confidence < opts.MinConfidenceScore {
		return e.skip(handleID, ri, action, "low-confidence")
	}

	ops, inverse, err := e.patchWithConflictRetry(ctx, ri.ID, pre, func(p adoclient.WorkItemBatchEntry) ([]adoclient.PatchOp, []adoclient.PatchOp, error) {
		o, i := composeStoryPointsPatch(p, decision.StoryPoints)
		return o, i, nil
	})
	if err != nil {
		return e.fail(handleID, ri, action, ops, err)
	}
	reason := ""
	if action.IncludeReasoning {
		reason = decision.Reasoning
	}
	outcome := e.applied(handleID, ri, action, ops, inverse)
	outcome.Reason = reason
	return outcome
}

func (e *Engine) applyAnalyze(ctx context.Context, handleID string, h *handle.QueryHandle, ri handle.IndexID, action Action) ActionOutcome {
	item := h.WorkItemContextByID[ri.ID]
	prompt := fmt.Sprintf("Work item %d %q. Analyses requested: %s", ri.ID, item.Title, strings.Join(action.AnalysisTypes, ", "))

	decision, err := e.sample(ctx, analyzeSystemPrompt, prompt)
	if err != nil {
		return e.fail(handleID, ri, action, nil, err)
	}

	seq := e.history.Append(history.Record{
		HandleID: handleID, Index: ri.Index, ID: ri.ID, Kind: string(action.Kind),
		AppliedAt: e.clock.Now(), Payload: decision.Summary, Outcome: history.Applied, Reason: decision.Summary,
	})
	return ActionOutcome{Kind: action.Kind, SequenceNo: seq, Outcome: history.Applied, Reason: decision.Summary}
}
