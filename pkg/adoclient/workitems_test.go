package adoclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWIQLPassesQueryVerbatim(t *testing.T) {
	var capturedBody map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		_ = json.NewEncoder(w).Encode(WIQLResult{
			WorkItems: []struct {
				ID  int    `json:"id"`
				URL string `json:"url"`
			}{{ID: 101}, {ID: 102}},
		})
	})

	query := "SELECT [System.Id] FROM WorkItems WHERE [System.State] = 'Active'"
	result, err := client.RunWIQL(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, query, capturedBody["query"])
	assert.Len(t, result.WorkItems, 2)
}

func TestGetWorkItemsBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "ids=101,102")
		_ = json.NewEncoder(w).Encode(workItemBatchResponse{
			Value: []WorkItemBatchEntry{
				{ID: 101, Rev: 4, Fields: WorkItemFields{"System.Title": "Fix crash"}},
				{ID: 102, Rev: 1, Fields: WorkItemFields{"System.Title": "Add dark mode"}},
			},
		})
	})

	entries, err := client.GetWorkItemsBatch(context.Background(), []int{101, 102}, []string{"System.Title"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Fix crash", entries[0].Fields["System.Title"])
}

func TestPatchWorkItemReturnsNewRev(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var ops []PatchOp
		_ = json.NewDecoder(r.Body).Decode(&ops)
		require.Len(t, ops, 2)
		assert.Equal(t, "test", ops[0].Op)
		assert.Equal(t, "/rev", ops[0].Path)
		_ = json.NewEncoder(w).Encode(WorkItemBatchEntry{ID: 101, Rev: 5})
	})

	ops := []PatchOp{TestRevOp(4), {Op: "replace", Path: "/fields/System.Title", Value: "New title"}}
	entry, err := client.PatchWorkItem(context.Background(), 101, ops)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Rev)
}

func TestDeleteWorkItemSetsDestroyFlag(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "destroy=true")
	})

	err := client.DeleteWorkItem(context.Background(), 101, true)
	require.NoError(t, err)
}

func TestGetRevisions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "$top=50")
		_ = json.NewEncoder(w).Encode(revisionsResponse{
			Value: []Revision{{ID: 101, Rev: 1}, {ID: 101, Rev: 2}},
		})
	})

	revisions, err := client.GetRevisions(context.Background(), 101, 50)
	require.NoError(t, err)
	assert.Len(t, revisions, 2)
}

func TestAddAndDeleteComment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(Comment{ID: 7, Text: "looks good"})
			return
		}
		assert.Equal(t, http.MethodDelete, r.Method)
	})

	created, err := client.AddComment(context.Background(), 101, "looks good")
	require.NoError(t, err)
	assert.Equal(t, 7, created.ID)

	err = client.DeleteComment(context.Background(), 101, created.ID)
	require.NoError(t, err)
}
