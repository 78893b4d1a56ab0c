// Package handle implements the Query Handle Service (C4): an in-memory
// store mapping opaque handle ids to immutable query snapshots, with TTL
// eviction via a background sweeper and pure/repeatable selector
// resolution (spec §3, §4.4).
package handle

import "time"

// FieldValue is the closed sum type a WorkItemSnapshot/ItemContext field
// can hold, replacing a bare `any` so callers can switch exhaustively
// instead of type-asserting blindly.
type FieldValue struct {
	String   *string
	Number   *float64
	Bool     *bool
	Identity *Identity
}

// Identity represents an ADO identity-typed field value (e.g. AssignedTo).
type Identity struct {
	DisplayName string
	UniqueName  string
	ID          string
}

// Relation is a work-item relation captured in a full-package snapshot.
type Relation struct {
	RelType    string
	TargetURL  string
	Attributes map[string]string
}

// WorkItemSnapshot is the immutable record captured at query time for one
// work item (spec §3). Fields is keyed by ADO field reference-name.
type WorkItemSnapshot struct {
	ID           int
	RevAtCapture int
	Fields       map[string]FieldValue
	Relations    []Relation
}

// ItemContext is the derived, per-item view retained for cheap display
// and selection (spec §3). Index is stable for the handle's lifetime.
type ItemContext struct {
	Index                   int
	ID                      int
	Title                   string
	State                   string
	Type                    string
	AssignedTo              *Identity
	Tags                    []string
	Priority                *int
	StoryPoints             *float64
	Description             string
	AcceptanceCriteria      string
	DaysInactive            *int
	LastSubstantiveChange   *time.Time
	LastSubstantiveChangeBy string
	CreatedDate             time.Time
	ChangedDate             time.Time
}

// SelectionMetadata describes the selection space without touching ADO
// again (spec §3).
type SelectionMetadata struct {
	SelectableIndices []int
	CriteriaTags      map[string]struct{}
	StateHistogram    map[string]int
	TypeHistogram     map[string]int
}

// AnalysisMetadata records C2/C3 fan-out bookkeeping for the handle as a
// whole: how many items' staleness lookups failed, and whether the result
// set was truncated by top/skip (spec §4.2, §4.3).
type AnalysisMetadata struct {
	FailureCount int
	HasMore      bool
}

// QueryKind distinguishes the query language used to produce a handle.
type QueryKind string

const (
	QueryKindWIQL   QueryKind = "wiql"
	QueryKindOData  QueryKind = "odata"
)

// QueryHandle is the immutable, TTL-bound snapshot returned by C3/C4
// (spec §3). Invariants (i)-(v) are established at construction in
// NewQueryHandle and never violated afterward: handles are read-only.
type QueryHandle struct {
	HandleID            string
	CreatedAt           time.Time
	ExpiresAt           time.Time
	OriginalQuery       string
	QueryKind           QueryKind
	Organization        string
	Project             string
	WorkItemIDs         []int
	ItemContext         []ItemContext
	WorkItemContextByID map[int]ItemContext
	Snapshots           map[int]WorkItemSnapshot // present only when fetchFullPackages was requested
	AnalysisMetadata    AnalysisMetadata
	SelectionMetadata   SelectionMetadata
}
