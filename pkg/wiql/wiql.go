// Package wiql implements the WIQL/OData Query Executor (C3): submits a
// query to ADO verbatim, fetches field bundles in batches, optionally
// enriches each item with C2's staleness verdict via a bounded
// concurrent fan-out, applies client-side filters, and hands the
// resulting snapshot to C4 for storage (spec §4.3).
package wiql

import (
	"context"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/collab"
	"github.com/adomcp/bridge/pkg/handle"
	"github.com/adomcp/bridge/pkg/staleness"
)

// alwaysOnFields is the minimal field bundle fetched regardless of what
// the caller asked for (spec §4.3 step 3).
var alwaysOnFields = []string{
	"System.Id", "System.Title", "System.State", "System.WorkItemType",
	"System.AssignedTo", "System.Tags", "System.AreaPath", "System.IterationPath",
	"Microsoft.VSTS.Common.Priority", "Microsoft.VSTS.Scheduling.StoryPoints",
	"System.CreatedDate", "System.ChangedDate", "System.Description",
	"Microsoft.VSTS.Common.AcceptanceCriteria",
}

const maxBatchSize = 200

// orderByLinksPattern detects the unsupported WorkItemLinks+ORDER BY
// combination (spec §4.3 step 1).
var orderByLinksPattern = regexp.MustCompile(`(?is)FROM\s+WorkItemLinks`)
var orderByPattern = regexp.MustCompile(`(?is)ORDER\s+BY`)

// Options mirrors spec §4.3's `execute(query, options)`.
type Options struct {
	IncludeFields                     []string
	Top                               int
	Skip                              int
	IncludeSubstantiveChange          bool
	SubstantiveChangeHistoryCount     int
	AutomationPatterns                []string
	SubstantiveFields                 []string
	FilterByDaysInactiveMin           *int
	FilterByDaysInactiveMax           *int
	FilterByMissingDescription        bool
	FilterByMissingAcceptanceCriteria bool
	FilterByPatterns                  []string // "duplicates", "missing_description", "missing_acceptance_criteria", "stale"
	FetchFullPackages                 bool

	StalenessFanOut      int
	PreviewCount         int
	FullPackageWarnAbove int
	HandleTTL            time.Duration
}

// Executor is C3.
type Executor struct {
	client *adoclient.Client
	store  *handle.Store
	clock  collab.Clock
	logger collab.Logger
}

// New constructs an Executor.
func New(client *adoclient.Client, store *handle.Store, clock collab.Clock, logger collab.Logger) *Executor {
	return &Executor{client: client, store: store, clock: clock, logger: logger}
}

// Result is what Execute hands back to the caller alongside the stored
// handle: a bounded preview plus the same hasMore flag the handle itself
// carries, so a caller holding only the handle id can still see whether
// the selection was truncated.
type Result struct {
	HandleID string
	Preview  []handle.ItemContext
	HasMore  bool
	Warnings []string
}

// Execute runs the full C3 algorithm (spec §4.3).
func (e *Executor) Execute(ctx context.Context, query string, kind handle.QueryKind, org, project string, opts Options) (Result, error) {
	if kind == handle.QueryKindWIQL && orderByLinksPattern.MatchString(query) && orderByPattern.MatchString(query) {
		return Result{}, adoerrors.New(adoerrors.QueryUnsupported,
			"WIQL ORDER BY is not supported within FROM WorkItemLinks queries (silently returns zero rows on the ADO side)")
	}

	ids, err := e.collectIDs(ctx, query)
	if err != nil {
		return Result{}, err
	}

	hasMore := false
	if opts.Top > 0 && len(ids) > opts.Skip+opts.Top {
		hasMore = true
	}
	ids, _ = paginate(ids, opts.Skip, opts.Top)

	fields := mergeFields(alwaysOnFields, opts.IncludeFields)
	entries, err := e.fetchBatches(ctx, ids, fields)
	if err != nil {
		return Result{}, err
	}

	items := make([]handle.ItemContext, 0, len(entries))
	failureCount := 0
	if opts.IncludeSubstantiveChange {
		items, failureCount = e.enrichWithStaleness(ctx, entries, opts)
	} else {
		for i, entry := range entries {
			items = append(items, buildItemContext(i, entry, nil))
		}
	}

	var warnings []string
	items = applyFilters(items, opts)
	items = reindex(items)

	if opts.FetchFullPackages && len(items) > opts.FullPackageWarnAbove && opts.FullPackageWarnAbove > 0 {
		warnings = append(warnings, "full-package mode requested for more than the configured warn threshold of items; this multiplies ADO API cost 2-3x per item")
	}

	workItemIDs := make([]int, len(items))
	for i, item := range items {
		workItemIDs[i] = item.ID
	}

	h := &handle.QueryHandle{
		OriginalQuery: query,
		QueryKind:     kind,
		Organization:  org,
		Project:       project,
		WorkItemIDs:   workItemIDs,
		ItemContext:   items,
		AnalysisMetadata: handle.AnalysisMetadata{
			FailureCount: failureCount,
			HasMore:      hasMore,
		},
	}

	handleID, err := e.store.StoreHandle(h, opts.HandleTTL)
	if err != nil {
		return Result{}, err
	}

	previewCount := opts.PreviewCount
	if previewCount <= 0 {
		previewCount = 10
	}
	if previewCount > len(items) {
		previewCount = len(items)
	}

	return Result{
		HandleID: handleID,
		Preview:  append([]handle.ItemContext(nil), items[:previewCount]...),
		HasMore:  hasMore,
		Warnings: warnings,
	}, nil
}

func (e *Executor) collectIDs(ctx context.Context, query string) ([]int, error) {
	result, err := e.client.RunWIQL(ctx, query)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(result.WorkItems))
	for i, wi := range result.WorkItems {
		ids[i] = wi.ID
	}
	return ids, nil
}

func paginate(ids []int, skip, top int) ([]int, bool) {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(ids) {
		return nil, len(ids) > 0
	}
	ids = ids[skip:]
	truncated := false
	if top > 0 && len(ids) > top {
		ids = ids[:top]
		truncated = true
	}
	return ids, truncated
}

func (e *Executor) fetchBatches(ctx context.Context, ids []int, fields []string) ([]adoclient.WorkItemBatchEntry, error) {
	var entries []adoclient.WorkItemBatchEntry
	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := e.client.GetWorkItemsBatch(ctx, ids[start:end], fields)
		if err != nil {
			return nil, err
		}
		entries = append(entries, batch...)
	}
	return entries, nil
}

func (e *Executor) enrichWithStaleness(ctx context.Context, entries []adoclient.WorkItemBatchEntry, opts Options) ([]handle.ItemContext, int) {
	fanOut := opts.StalenessFanOut
	if fanOut <= 0 {
		fanOut = 16
	}
	historyCount := opts.SubstantiveChangeHistoryCount
	if historyCount <= 0 {
		historyCount = 50
	}

	verdicts := make([]*staleness.Verdict, len(entries))
	var failureCount int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)

	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			revisions, err := e.client.GetRevisions(gctx, entry.ID, historyCount)
			if err != nil {
				v := staleness.Unknown(err.Error())
				verdicts[i] = &v
				atomic.AddInt32(&failureCount, 1)
				return nil
			}
			staleRevisions := toStalenessRevisions(revisions)
			created := parseTime(entry.Fields["System.CreatedDate"])
			v := staleness.Analyze(staleRevisions, opts.AutomationPatterns, opts.SubstantiveFields, created, e.clock.Now())
			verdicts[i] = &v
			return nil
		})
	}
	_ = g.Wait()

	items := make([]handle.ItemContext, len(entries))
	for i, entry := range entries {
		items[i] = buildItemContext(i, entry, verdicts[i])
	}
	return items, int(failureCount)
}

func toStalenessRevisions(revs []adoclient.Revision) []staleness.Revision {
	out := make([]staleness.Revision, len(revs))
	for i, r := range revs {
		author := ""
		if id := identityField(r.Fields, "System.ChangedBy"); id != nil {
			author = id.DisplayName
			if author == "" {
				author = id.UniqueName
			}
		}
		out[i] = staleness.Revision{
			Rev:         r.Rev,
			AuthorName:  author,
			ChangedDate: parseTime(r.Fields["System.ChangedDate"]),
			Fields:      stringifyFields(r.Fields),
		}
	}
	// Reverse into newest-first, since ADO's revisions endpoint returns
	// oldest-first (spec §4.2 requires "reverse-chronological order").
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func stringifyFields(fields adoclient.WorkItemFields) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		case map[string]any:
			// Identity-typed fields (System.AssignedTo, System.ChangedBy,
			// ...) arrive as {displayName,uniqueName,id} objects under
			// api-version 7.1, not strings; collapsing them to "" would
			// make an assignee-only change undetectable (spec §4.2 lists
			// assigned-to as substantive).
			out[k] = identityMapKey(val)
		case nil:
			out[k] = ""
		default:
			out[k] = ""
		}
	}
	return out
}

// identityMapKey extracts a stable diffable string from an ADO identity
// object, preferring uniqueName (stable across display-name changes).
func identityMapKey(m map[string]any) string {
	if uniqueName, _ := m["uniqueName"].(string); uniqueName != "" {
		return uniqueName
	}
	displayName, _ := m["displayName"].(string)
	return displayName
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func mergeFields(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, f := range append(append([]string{}, base...), extra...) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func reindex(items []handle.ItemContext) []handle.ItemContext {
	for i := range items {
		items[i].Index = i
	}
	return items
}
