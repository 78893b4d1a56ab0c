package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adomcp/bridge/pkg/adoclient"
)

func TestComposeOpsUpdateBuildsInverseFromPreImage(t *testing.T) {
	pre := adoclient.WorkItemBatchEntry{ID: 101, Rev: 7, Fields: adoclient.WorkItemFields{"System.Title": "old title"}}
	patch := []adoclient.PatchOp{{Op: "replace", Path: "/fields/System.Title", Value: "new title"}}

	ops, inverse, err := composeOps(ActionUpdate, Action{Kind: ActionUpdate, Patch: patch}, pre)
	require.NoError(t, err)
	assert.Equal(t, "test", ops[0].Op)
	assert.Equal(t, 7, ops[0].Value)
	assert.Equal(t, "new title", ops[1].Value)
	assert.Equal(t, "old title", inverse[0].Value)
}

func TestComposeOpsAddTagUnionsWithoutDuplicating(t *testing.T) {
	pre := adoclient.WorkItemBatchEntry{ID: 101, Rev: 1, Fields: adoclient.WorkItemFields{"System.Tags": "perf; bug"}}

	ops, inverse, err := composeOps(ActionAddTag, Action{Kind: ActionAddTag, Tags: []string{"bug", "urgent"}}, pre)
	require.NoError(t, err)
	assert.Equal(t, "perf; bug; urgent", ops[1].Value)
	assert.Equal(t, "perf; bug", inverse[0].Value)
}

func TestComposeOpsRemoveTagDropsOnlyNamed(t *testing.T) {
	pre := adoclient.WorkItemBatchEntry{ID: 101, Rev: 1, Fields: adoclient.WorkItemFields{"System.Tags": "perf; bug; urgent"}}

	ops, _, err := composeOps(ActionRemoveTag, Action{Kind: ActionRemoveTag, Tags: []string{"bug"}}, pre)
	require.NoError(t, err)
	assert.Equal(t, "perf; urgent", ops[1].Value)
}

func TestComposeOpsAssignUnassignUsesRemoveOp(t *testing.T) {
	pre := adoclient.WorkItemBatchEntry{ID: 101, Rev: 1, Fields: adoclient.WorkItemFields{
		"System.AssignedTo": map[string]any{"uniqueName": "alice@example.com"},
	}}

	ops, inverse, err := composeOps(ActionAssign, Action{Kind: ActionAssign, AssignTo: ""}, pre)
	require.NoError(t, err)
	assert.Equal(t, "remove", ops[1].Op)
	assert.Equal(t, "replace", inverse[0].Op)
	assert.Equal(t, "alice@example.com", inverse[0].Value)
}

func TestComposeOpsRemoveSoftSetsStateRemoved(t *testing.T) {
	pre := adoclient.WorkItemBatchEntry{ID: 101, Rev: 1, Fields: adoclient.WorkItemFields{"System.State": "Active"}}

	ops, inverse, err := composeOps(ActionRemove, Action{Kind: ActionRemove, RemoveReason: "duplicate"}, pre)
	require.NoError(t, err)
	assert.Equal(t, "Removed", ops[1].Value)
	assert.Equal(t, "Active", inverse[0].Value)
}

func TestUnionAndSubtractTagsAreCaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"Bug", "perf"}, unionTags([]string{"Bug"}, []string{"bug", "perf"}))
	assert.Equal(t, []string{"perf"}, subtractTags([]string{"Bug", "perf"}, []string{"bug"}))
}
