package bulk

import (
	"fmt"
	"strings"

	"github.com/adomcp/bridge/pkg/adoclient"
)

// composeOps builds the JSON-Patch ops and the ops that would undo them,
// from the pre-image fetched just before dispatch (spec §4.6's normative
// action table, "Pre-image captured" / "Inverse" columns). The rev
// test-op is always first, giving optimistic concurrency (spec §4.6 step
// 3).
func composeOps(kind ActionKind, action Action, pre adoclient.WorkItemBatchEntry) ([]adoclient.PatchOp, []adoclient.PatchOp, error) {
	testRev := adoclient.TestRevOp(pre.Rev)

	switch kind {
	case ActionUpdate:
		ops := append([]adoclient.PatchOp{testRev}, action.Patch...)
		inverse := make([]adoclient.PatchOp, 0, len(action.Patch))
		for _, op := range action.Patch {
			field := strings.TrimPrefix(op.Path, "/fields/")
			inverse = append(inverse, adoclient.PatchOp{Op: "replace", Path: op.Path, Value: pre.Fields[field]})
		}
		return ops, inverse, nil

	case ActionAddTag:
		current := splitTags(stringField(pre.Fields, "System.Tags"))
		merged := unionTags(current, action.Tags)
		ops := []adoclient.PatchOp{testRev, {Op: "replace", Path: "/fields/System.Tags", Value: joinTags(merged)}}
		inverse := []adoclient.PatchOp{{Op: "replace", Path: "/fields/System.Tags", Value: joinTags(current)}}
		return ops, inverse, nil

	case ActionRemoveTag:
		current := splitTags(stringField(pre.Fields, "System.Tags"))
		remaining := subtractTags(current, action.Tags)
		ops := []adoclient.PatchOp{testRev, {Op: "replace", Path: "/fields/System.Tags", Value: joinTags(remaining)}}
		inverse := []adoclient.PatchOp{{Op: "replace", Path: "/fields/System.Tags", Value: joinTags(current)}}
		return ops, inverse, nil

	case ActionAssign:
		prior := identityUniqueName(pre.Fields, "System.AssignedTo")
		op := assignOp(action.AssignTo)
		inverse := assignOp(prior)
		return []adoclient.PatchOp{testRev, op}, []adoclient.PatchOp{inverse}, nil

	case ActionMoveIteration:
		prior := stringField(pre.Fields, "System.IterationPath")
		ops := []adoclient.PatchOp{testRev, {Op: "replace", Path: "/fields/System.IterationPath", Value: action.TargetIterationPath}}
		inverse := []adoclient.PatchOp{{Op: "replace", Path: "/fields/System.IterationPath", Value: prior}}
		return ops, inverse, nil

	case ActionRemove:
		// Soft remove only; Destroy is handled by Engine.applyDestroy
		// before composeOps is ever reached.
		prior := stringField(pre.Fields, "System.State")
		ops := []adoclient.PatchOp{testRev, {Op: "replace", Path: "/fields/System.State", Value: "Removed"}}
		inverse := []adoclient.PatchOp{{Op: "replace", Path: "/fields/System.State", Value: prior}}
		return ops, inverse, nil

	default:
		return nil, nil, fmt.Errorf("bulk: action kind %q has no field-patch composition", kind)
	}
}

func assignOp(uniqueName string) adoclient.PatchOp {
	if uniqueName == "" {
		return adoclient.PatchOp{Op: "remove", Path: "/fields/System.AssignedTo"}
	}
	return adoclient.PatchOp{Op: "replace", Path: "/fields/System.AssignedTo", Value: uniqueName}
}

// composeDescriptionPatch and composeStoryPointsPatch build the ops for
// the two AI-assisted field updates, applied only after the AI decision
// clears the confidence gate.
func composeDescriptionPatch(pre adoclient.WorkItemBatchEntry, newDescription string) ([]adoclient.PatchOp, []adoclient.PatchOp) {
	prior := stringField(pre.Fields, "System.Description")
	ops := []adoclient.PatchOp{adoclient.TestRevOp(pre.Rev), {Op: "replace", Path: "/fields/System.Description", Value: newDescription}}
	inverse := []adoclient.PatchOp{{Op: "replace", Path: "/fields/System.Description", Value: prior}}
	return ops, inverse
}

func composeStoryPointsPatch(pre adoclient.WorkItemBatchEntry, points float64) ([]adoclient.PatchOp, []adoclient.PatchOp) {
	prior := pre.Fields["Microsoft.VSTS.Scheduling.StoryPoints"]
	ops := []adoclient.PatchOp{adoclient.TestRevOp(pre.Rev), {Op: "replace", Path: "/fields/Microsoft.VSTS.Scheduling.StoryPoints", Value: points}}
	inverse := []adoclient.PatchOp{{Op: "replace", Path: "/fields/Microsoft.VSTS.Scheduling.StoryPoints", Value: prior}}
	return ops, inverse
}
