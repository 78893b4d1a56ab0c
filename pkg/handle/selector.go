package handle

import "regexp"

// SelectorKind tags which ItemSelector variant is populated. Expressed as
// an explicit tagged sum type rather than an untyped "shape" per the
// "Dynamic type shapes" design note: callers switch on Kind instead of
// probing which fields are non-nil.
type SelectorKind string

const (
	SelectorAll      SelectorKind = "all"
	SelectorIndices  SelectorKind = "indices"
	SelectorCriteria SelectorKind = "criteria"
)

// ItemSelector is one of: every index, an explicit ordered index list, or
// a criteria predicate (spec §3). Exactly one of Indices/Criteria is
// meaningful, gated by Kind.
type ItemSelector struct {
	Kind     SelectorKind
	Indices  []int
	Criteria Criteria
}

// All returns the selector matching every index in the handle.
func All() ItemSelector { return ItemSelector{Kind: SelectorAll} }

// ByIndices returns a selector matching the given 0-based indices.
func ByIndices(indices []int) ItemSelector {
	return ItemSelector{Kind: SelectorIndices, Indices: indices}
}

// ByCriteria returns a selector matching the given criteria predicate.
func ByCriteria(c Criteria) ItemSelector {
	return ItemSelector{Kind: SelectorCriteria, Criteria: c}
}

// Criteria combines by AND across fields, OR within a field (spec §3).
// TitleMatches is pre-compiled by the caller (or by Compile) since
// regexp.Regexp has no zero-value "unset" state that round-trips well.
type Criteria struct {
	States                    map[string]struct{}
	Types                     map[string]struct{}
	TagsIncludeAny            map[string]struct{}
	TagsIncludeAll            map[string]struct{}
	AssignedToAny             map[string]struct{} // "unassigned" matches missing identity
	DaysInactiveMin           *int
	DaysInactiveMax           *int
	TitleMatches              *regexp.Regexp
	MissingDescription        bool
	MissingAcceptanceCriteria bool
}
