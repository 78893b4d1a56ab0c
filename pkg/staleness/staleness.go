// Package staleness implements the Substantive-Change Analyzer (C2): a
// pure function over an ordered revision history that classifies each
// revision as substantive or automated and derives the last substantive
// change date, expressed per spec §9's "Revision-history walking" design
// note so it is testable without any network access.
package staleness

import (
	"strings"
	"time"
)

// Revision is the subset of an ADO revision this analyzer needs: the
// field bag at that revision, who authored it, and when. Revisions must
// be supplied newest-first (reverse-chronological, spec §4.2).
type Revision struct {
	Rev         int
	AuthorName  string
	ChangedDate time.Time
	Fields      map[string]string
}

// Verdict is C2's per-item output (spec §4.2).
type Verdict struct {
	Status                   string // "ok" or "unknown"
	Reason                   string // populated when Status == "unknown"
	LastSubstantiveChangeDate time.Time
	LastSubstantiveChangeBy   string
	DaysInactive              int
	AutomatedRevisionsSkipped int
	AllChangesWereAutomated   bool
}

// defaultSubstantiveFields are the built-in substantive field ref-names
// (spec §4.2); config.StalenessConfig.SubstantiveFields extends this set.
var defaultSubstantiveFields = map[string]struct{}{
	"System.Title":                              {},
	"System.Description":                        {},
	"Microsoft.VSTS.Common.AcceptanceCriteria":   {},
	"Microsoft.VSTS.TCM.ReproSteps":              {},
	"System.State":                               {},
	"System.AssignedTo":                          {},
	"Microsoft.VSTS.Common.Priority":             {},
	"Microsoft.VSTS.Scheduling.StoryPoints":      {},
	"System.Tags":                                {},
}

// defaultNonSubstantiveFields are fields that never count toward
// substantiveness on their own (spec §4.2 "automated iff the only
// differences are in iteration path, area path, or other non-substantive
// fields").
var defaultNonSubstantiveFields = map[string]struct{}{
	"System.AreaPath":      {},
	"System.IterationPath": {},
	"System.ChangedDate":   {},
	"System.Watermark":     {},
	"System.Rev":           {},
}

// Analyze is the pure function (orderedRevisions, automationPatterns,
// substantiveFields, now) -> Verdict. revisions must be ordered
// newest-first. createdDate is the item's creation date, used as the
// fallback per spec §4.2 when allChangesWereAutomated.
func Analyze(revisions []Revision, automationPatterns, extraSubstantiveFields []string, createdDate, now time.Time) Verdict {
	substantive := mergeFields(defaultSubstantiveFields, extraSubstantiveFields)

	if len(revisions) == 0 {
		return Verdict{
			Status:                    "ok",
			LastSubstantiveChangeDate: createdDate,
			DaysInactive:              daysBetween(createdDate, now),
			AllChangesWereAutomated:   true,
		}
	}

	// Scan the whole window rather than stopping at the first substantive
	// pair: automatedRevisionsSkipped counts every automated transition in
	// the window (spec §8 scenario 6), not just the ones preceding the
	// most recent substantive change.
	automatedSkipped := 0
	foundSubstantive := false
	var substantiveDate time.Time
	var substantiveBy string

	for i := 0; i < len(revisions)-1; i++ {
		current := revisions[i]
		previous := revisions[i+1]

		if isSubstantive(current, previous, substantive, defaultNonSubstantiveFields, automationPatterns) {
			if !foundSubstantive {
				substantiveDate = current.ChangedDate
				substantiveBy = current.AuthorName
				foundSubstantive = true
			}
			continue
		}
		automatedSkipped++
	}

	if foundSubstantive {
		return Verdict{
			Status:                    "ok",
			LastSubstantiveChangeDate: substantiveDate,
			LastSubstantiveChangeBy:   substantiveBy,
			DaysInactive:              daysBetween(substantiveDate, now),
			AutomatedRevisionsSkipped: automatedSkipped,
		}
	}

	// Every revision in the window was automated (or there was only one
	// revision, which cannot be diffed against a predecessor): fall back
	// to the item's creation date.
	return Verdict{
		Status:                    "ok",
		LastSubstantiveChangeDate: createdDate,
		DaysInactive:              daysBetween(createdDate, now),
		AutomatedRevisionsSkipped: automatedSkipped,
		AllChangesWereAutomated:   true,
	}
}

// Unknown builds the {status: "unknown", reason} verdict C3 records when
// revisions could not be fetched (spec §4.2 "Failure semantics").
func Unknown(reason string) Verdict {
	return Verdict{Status: "unknown", Reason: reason}
}

func isSubstantive(current, previous Revision, substantiveFields, nonSubstantiveFields map[string]struct{}, automationPatterns []string) bool {
	changedSubstantive := false
	changedOther := false

	for field, val := range current.Fields {
		if previous.Fields[field] == val {
			continue
		}
		if _, ok := substantiveFields[field]; ok {
			changedSubstantive = true
			continue
		}
		if _, ok := nonSubstantiveFields[field]; ok {
			continue
		}
		changedOther = true
	}
	for field := range previous.Fields {
		if _, present := current.Fields[field]; present {
			continue
		}
		if _, ok := substantiveFields[field]; ok {
			changedSubstantive = true
		}
	}

	if changedSubstantive {
		return true
	}
	if !changedOther {
		return false
	}

	// Only non-substantive fields plus unlisted ("other") fields changed.
	// Per spec §4.2, this still counts as automated only if the author
	// matches an automation pattern; otherwise a human touched a field
	// this analyzer doesn't recognize, which is conservatively substantive.
	return !authorMatchesAutomation(current.AuthorName, automationPatterns)
}

func authorMatchesAutomation(author string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(author, p) {
			return true
		}
	}
	return false
}

func mergeFields(base map[string]struct{}, extra []string) map[string]struct{} {
	merged := make(map[string]struct{}, len(base)+len(extra))
	for k := range base {
		merged[k] = struct{}{}
	}
	for _, f := range extra {
		merged[f] = struct{}{}
	}
	return merged
}

func daysBetween(past, now time.Time) int {
	d := now.Sub(past)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
