package wiql

import (
	"strconv"
	"strings"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/handle"
	"github.com/adomcp/bridge/pkg/staleness"
)

// buildItemContext projects one ADO batch entry (plus an optional
// staleness verdict) into an ItemContext (spec §4.3 step 6).
func buildItemContext(index int, entry adoclient.WorkItemBatchEntry, verdict *staleness.Verdict) handle.ItemContext {
	ctx := handle.ItemContext{
		Index:              index,
		ID:                 entry.ID,
		Title:              stringField(entry.Fields, "System.Title"),
		State:              stringField(entry.Fields, "System.State"),
		Type:               stringField(entry.Fields, "System.WorkItemType"),
		Tags:               splitTags(stringField(entry.Fields, "System.Tags")),
		Description:        stringField(entry.Fields, "System.Description"),
		AcceptanceCriteria: stringField(entry.Fields, "Microsoft.VSTS.Common.AcceptanceCriteria"),
		CreatedDate:        parseTime(entry.Fields["System.CreatedDate"]),
		ChangedDate:        parseTime(entry.Fields["System.ChangedDate"]),
	}

	if priority, ok := numberField(entry.Fields, "Microsoft.VSTS.Common.Priority"); ok {
		p := int(priority)
		ctx.Priority = &p
	}
	if sp, ok := numberField(entry.Fields, "Microsoft.VSTS.Scheduling.StoryPoints"); ok {
		ctx.StoryPoints = &sp
	}
	if assigned := identityField(entry.Fields, "System.AssignedTo"); assigned != nil {
		ctx.AssignedTo = assigned
	}

	if verdict != nil && verdict.Status == "ok" {
		lastChange := verdict.LastSubstantiveChangeDate
		ctx.LastSubstantiveChange = &lastChange
		ctx.LastSubstantiveChangeBy = verdict.LastSubstantiveChangeBy
		ctx.DaysInactive = &verdict.DaysInactive
	}

	return ctx
}

func stringField(fields adoclient.WorkItemFields, name string) string {
	v, ok := fields[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func numberField(fields adoclient.WorkItemFields, name string) (float64, bool) {
	v, ok := fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func identityField(fields adoclient.WorkItemFields, name string) *handle.Identity {
	v, ok := fields[name]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	displayName, _ := m["displayName"].(string)
	uniqueName, _ := m["uniqueName"].(string)
	id, _ := m["id"].(string)
	if displayName == "" && uniqueName == "" {
		return nil
	}
	return &handle.Identity{DisplayName: displayName, UniqueName: uniqueName, ID: id}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// applyFilters runs every client-side filter named in spec §4.3 step 5.
// Filters never re-issue ADO queries; they operate purely on the
// materialized bundle. Order of surviving items is preserved.
func applyFilters(items []handle.ItemContext, opts Options) []handle.ItemContext {
	out := items[:0:0]
	for _, item := range items {
		if opts.FilterByDaysInactiveMin != nil {
			if item.DaysInactive == nil || *item.DaysInactive < *opts.FilterByDaysInactiveMin {
				continue
			}
		}
		if opts.FilterByDaysInactiveMax != nil {
			if item.DaysInactive == nil || *item.DaysInactive > *opts.FilterByDaysInactiveMax {
				continue
			}
		}
		if opts.FilterByMissingDescription && item.Description != "" {
			continue
		}
		if opts.FilterByMissingAcceptanceCriteria && item.AcceptanceCriteria != "" {
			continue
		}
		if len(opts.FilterByPatterns) > 0 && !matchesAnyPattern(item, opts.FilterByPatterns) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// matchesAnyPattern implements the named pattern filters: "duplicates"
// (title starting with a common duplicate marker), "missing_description",
// "missing_acceptance_criteria", and "stale" (daysInactive known and
// non-zero). Patterns combine by OR, matching spec §4.3's description of
// filterByPatterns as covering these four named categories.
func matchesAnyPattern(item handle.ItemContext, patterns []string) bool {
	for _, p := range patterns {
		switch strings.ToLower(p) {
		case "duplicates":
			if strings.Contains(strings.ToLower(item.Title), "duplicate") {
				return true
			}
		case "missing_description":
			if item.Description == "" {
				return true
			}
		case "missing_acceptance_criteria":
			if item.AcceptanceCriteria == "" {
				return true
			}
		case "stale":
			if item.DaysInactive != nil && *item.DaysInactive > 0 {
				return true
			}
		}
	}
	return false
}
