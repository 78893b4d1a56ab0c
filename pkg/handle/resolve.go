package handle

import (
	"sort"

	"github.com/adomcp/bridge/pkg/adoerrors"
)

// IndexID pairs a stable handle index with its ADO work-item id, the unit
// C6 iterates over after resolving a selector (spec §3, §4.4).
type IndexID struct {
	Index int
	ID    int
}

// Resolve is the pure, repeatable projection of a QueryHandle + ItemSelector
// onto an ordered sequence of (index, id) pairs (spec §4.4 `resolve`).
func Resolve(h *QueryHandle, sel ItemSelector) ([]IndexID, error) {
	switch sel.Kind {
	case SelectorAll:
		out := make([]IndexID, len(h.ItemContext))
		for i, ctx := range h.ItemContext {
			out[i] = IndexID{Index: ctx.Index, ID: ctx.ID}
		}
		return out, nil
	case SelectorIndices:
		return resolveIndices(h, sel.Indices)
	case SelectorCriteria:
		return resolveCriteria(h, sel.Criteria), nil
	default:
		return nil, adoerrors.New(adoerrors.Validation, "unknown selector kind")
	}
}

func resolveIndices(h *QueryHandle, indices []int) ([]IndexID, error) {
	selectable := make(map[int]struct{}, len(h.SelectionMetadata.SelectableIndices))
	for _, idx := range h.SelectionMetadata.SelectableIndices {
		selectable[idx] = struct{}{}
	}

	seen := make(map[int]struct{}, len(indices))
	out := make([]IndexID, 0, len(indices))
	for _, idx := range indices {
		if _, ok := selectable[idx]; !ok {
			return nil, adoerrors.Newf(adoerrors.Validation, "index %d is out of range for this handle", idx)
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, IndexID{Index: idx, ID: h.ItemContext[idx].ID})
	}
	return out, nil
}

func resolveCriteria(h *QueryHandle, c Criteria) []IndexID {
	out := make([]IndexID, 0, len(h.ItemContext))
	for _, ctx := range h.ItemContext {
		if matchesCriteria(ctx, c) {
			out = append(out, IndexID{Index: ctx.Index, ID: ctx.ID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func matchesCriteria(ctx ItemContext, c Criteria) bool {
	if len(c.States) > 0 {
		if _, ok := c.States[ctx.State]; !ok {
			return false
		}
	}
	if len(c.Types) > 0 {
		if _, ok := c.Types[ctx.Type]; !ok {
			return false
		}
	}
	if len(c.TagsIncludeAny) > 0 && !anyTagMatches(ctx.Tags, c.TagsIncludeAny) {
		return false
	}
	if len(c.TagsIncludeAll) > 0 && !allTagsMatch(ctx.Tags, c.TagsIncludeAll) {
		return false
	}
	if len(c.AssignedToAny) > 0 && !assignedToMatches(ctx.AssignedTo, c.AssignedToAny) {
		return false
	}
	if c.DaysInactiveMin != nil || c.DaysInactiveMax != nil {
		if ctx.DaysInactive == nil {
			return false
		}
		if c.DaysInactiveMin != nil && *ctx.DaysInactive < *c.DaysInactiveMin {
			return false
		}
		if c.DaysInactiveMax != nil && *ctx.DaysInactive > *c.DaysInactiveMax {
			return false
		}
	}
	if c.TitleMatches != nil && !c.TitleMatches.MatchString(ctx.Title) {
		return false
	}
	if c.MissingDescription && ctx.Description != "" {
		return false
	}
	if c.MissingAcceptanceCriteria && ctx.AcceptanceCriteria != "" {
		return false
	}
	return true
}

func anyTagMatches(tags []string, want map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := want[t]; ok {
			return true
		}
	}
	return false
}

func allTagsMatch(tags []string, want map[string]struct{}) bool {
	have := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		have[t] = struct{}{}
	}
	for w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}

func assignedToMatches(assignedTo *Identity, want map[string]struct{}) bool {
	if assignedTo == nil {
		_, ok := want["unassigned"]
		return ok
	}
	_, ok := want[assignedTo.UniqueName]
	return ok
}
