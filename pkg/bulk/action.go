// Package bulk implements the Bulk-Operation Engine (C6): applies a
// non-empty ordered sequence of typed Actions to the items a selector
// resolves against a stored handle, capturing a pre-image and inverse for
// every mutating action so C5 can undo it later (spec §4.6).
package bulk

import "github.com/adomcp/bridge/pkg/adoclient"

// ActionKind tags which Action variant is populated, mirroring the
// handle.ItemSelector tagged-sum-type approach rather than an untyped
// "shape" (spec §9 "Dynamic type shapes").
type ActionKind string

const (
	ActionUpdate              ActionKind = "update"
	ActionComment             ActionKind = "comment"
	ActionAddTag              ActionKind = "add-tag"
	ActionRemoveTag           ActionKind = "remove-tag"
	ActionAssign              ActionKind = "assign"
	ActionMoveIteration       ActionKind = "move-iteration"
	ActionRemove              ActionKind = "remove"
	ActionEnhanceDescriptions ActionKind = "enhance-descriptions"
	ActionAssignStoryPoints   ActionKind = "assign-story-points"
	ActionAnalyze             ActionKind = "analyze"
)

// Action is one entry in the ordered sequence passed to Execute (spec
// §4.6's normative action table). Exactly the fields relevant to Kind are
// meaningful; the rest are zero-valued.
type Action struct {
	Kind ActionKind

	// ActionUpdate: caller-supplied JSON-Patch ops on /fields/*. The
	// engine prepends the rev test-op itself.
	Patch []adoclient.PatchOp

	// ActionComment
	Text string

	// ActionAddTag / ActionRemoveTag
	Tags []string

	// ActionAssign: unique name, or "" to unassign.
	AssignTo string

	// ActionMoveIteration
	TargetIterationPath string
	IterationComment     string

	// ActionRemove
	RemoveReason string
	Destroy      bool

	// ActionEnhanceDescriptions
	DescriptionStyle string

	// ActionAssignStoryPoints
	StoryPointScale         string
	OverwriteExistingPoints bool
	IncludeReasoning        bool

	// ActionAnalyze
	AnalysisTypes []string
}

func UpdateAction(patch []adoclient.PatchOp) Action {
	return Action{Kind: ActionUpdate, Patch: patch}
}

func CommentAction(text string) Action {
	return Action{Kind: ActionComment, Text: text}
}

func AddTagAction(tags []string) Action {
	return Action{Kind: ActionAddTag, Tags: tags}
}

func RemoveTagAction(tags []string) Action {
	return Action{Kind: ActionRemoveTag, Tags: tags}
}

func AssignAction(assignTo string) Action {
	return Action{Kind: ActionAssign, AssignTo: assignTo}
}

func MoveIterationAction(targetPath, comment string) Action {
	return Action{Kind: ActionMoveIteration, TargetIterationPath: targetPath, IterationComment: comment}
}

func RemoveAction(reason string, destroy bool) Action {
	return Action{Kind: ActionRemove, RemoveReason: reason, Destroy: destroy}
}

func EnhanceDescriptionsAction(style string) Action {
	return Action{Kind: ActionEnhanceDescriptions, DescriptionStyle: style}
}

func AssignStoryPointsAction(scale string, overwriteExisting, includeReasoning bool) Action {
	return Action{
		Kind:                    ActionAssignStoryPoints,
		StoryPointScale:         scale,
		OverwriteExistingPoints: overwriteExisting,
		IncludeReasoning:        includeReasoning,
	}
}

func AnalyzeAction(types []string) Action {
	return Action{Kind: ActionAnalyze, AnalysisTypes: types}
}
