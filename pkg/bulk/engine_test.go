package bulk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/collab"
	"github.com/adomcp/bridge/pkg/handle"
	"github.com/adomcp/bridge/pkg/history"
)

func newTestEngine(t *testing.T, mux *http.ServeMux, sampler collab.LLMSamplingChannel) (*Engine, *handle.Store, *history.Store, string) {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := adoclient.New(adoclient.Options{
		BaseURL:       server.URL,
		Org:           "contoso",
		Project:       "widgets",
		Tokens:        collab.NewFakeTokenProvider("tok"),
		GetDeadline:   2 * time.Second,
		WriteDeadline: 2 * time.Second,
	})
	clock := collab.NewFixedClock(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	store := handle.NewStore(clock, collab.NoopLogger{}, time.Minute)
	hist := history.NewStore()

	h := &handle.QueryHandle{
		WorkItemIDs: []int{101},
		ItemContext: []handle.ItemContext{
			{Index: 0, ID: 101, Title: "Fix login crash", Description: "crashes on login"},
		},
	}
	handleID, err := store.StoreHandle(h, time.Hour)
	require.NoError(t, err)

	return New(client, store, hist, sampler, clock, collab.NoopLogger{}), store, hist, handleID
}

func TestExecuteAssignAppliesPatchAndRecordsInverse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems/101", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(adoclient.WorkItemBatchEntry{
				ID: 101, Rev: 3,
				Fields: adoclient.WorkItemFields{"System.AssignedTo": map[string]any{"uniqueName": "alice@example.com"}},
			})
		case http.MethodPatch:
			_ = json.NewEncoder(w).Encode(adoclient.WorkItemBatchEntry{ID: 101, Rev: 4})
		}
	})

	engine, _, hist, handleID := newTestEngine(t, mux, nil)
	result, err := engine.Execute(context.Background(), handleID, handle.All(), []Action{AssignAction("bob@example.com")}, Options{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Items, 1)
	require.Len(t, result.Items[0].Actions, 1)
	assert.Equal(t, history.Applied, result.Items[0].Actions[0].Outcome)

	records := hist.For(handleID)
	require.Len(t, records, 1)
	assert.Equal(t, "assign", records[0].Kind)
	assert.NotNil(t, records[0].InversePayload)
}

func TestExecuteDryRunNeverCallsADO(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems/101", func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("ADO should never be called during a dry run, got %s %s", r.Method, r.URL.Path)
	})

	engine, _, _, handleID := newTestEngine(t, mux, nil)
	result, err := engine.Execute(context.Background(), handleID, handle.All(), []Action{AssignAction("bob@example.com")}, Options{DryRun: true, MaxPreviewItems: 10})
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.Len(t, result.Preview, 1)
	require.Len(t, result.Items[0].Actions, 1)
	assert.Equal(t, history.Skipped, result.Items[0].Actions[0].Outcome)
	assert.Equal(t, "dry-run", result.Items[0].Actions[0].Reason)
}

func TestExecuteRetriesOnceOnConflict(t *testing.T) {
	patchAttempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems/101", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(adoclient.WorkItemBatchEntry{
				ID: 101, Rev: 3,
				Fields: adoclient.WorkItemFields{"System.Tags": "a; b"},
			})
		case http.MethodPatch:
			patchAttempts++
			if patchAttempts == 1 {
				w.WriteHeader(http.StatusConflict)
				_ = json.NewEncoder(w).Encode(map[string]string{"message": "rev mismatch"})
				return
			}
			_ = json.NewEncoder(w).Encode(adoclient.WorkItemBatchEntry{ID: 101, Rev: 5})
		}
	})

	engine, _, _, handleID := newTestEngine(t, mux, nil)
	result, err := engine.Execute(context.Background(), handleID, handle.All(), []Action{AddTagAction([]string{"c"})}, Options{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, patchAttempts)
	assert.Equal(t, history.Applied, result.Items[0].Actions[0].Outcome)
}

func TestExecuteStopOnErrorPerItemAbortsRemainingActionsForItem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems/101/comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems/101", func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("second action should never dispatch once the item is aborted, got %s %s", r.Method, r.URL.Path)
	})

	engine, _, _, handleID := newTestEngine(t, mux, nil)
	result, err := engine.Execute(context.Background(), handleID, handle.All(),
		[]Action{CommentAction("hello"), AssignAction("bob@example.com")},
		Options{StopOnError: StopOnErrorPerItem})
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Items[0].Actions, 1)
	assert.Equal(t, history.Failed, result.Items[0].Actions[0].Outcome)
}

func TestExecuteEnhanceDescriptionsLowConfidenceSkipsWithoutADOCall(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems/101", func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("low-confidence decisions must never reach ADO, got %s %s", r.Method, r.URL.Path)
	})

	sampler := &collab.FakeSamplingChannel{Response: `{"description":"rewritten","confidence":0.2}`}
	engine, _, _, handleID := newTestEngine(t, mux, sampler)
	result, err := engine.Execute(context.Background(), handleID, handle.All(),
		[]Action{EnhanceDescriptionsAction("concise")}, Options{MinConfidenceScore: 0.5})
	require.NoError(t, err)
	require.Len(t, result.Items[0].Actions, 1)
	assert.Equal(t, history.Skipped, result.Items[0].Actions[0].Outcome)
	assert.Equal(t, "low-confidence", result.Items[0].Actions[0].Reason)
}

func TestExecuteAIUnavailableWhenNoSamplerConfigured(t *testing.T) {
	mux := http.NewServeMux()
	engine, _, _, handleID := newTestEngine(t, mux, nil)
	result, err := engine.Execute(context.Background(), handleID, handle.All(), []Action{AnalyzeAction([]string{"duplicates"})}, Options{})
	require.NoError(t, err)
	require.Len(t, result.Items[0].Actions, 1)
	outcome := result.Items[0].Actions[0]
	assert.Equal(t, history.Failed, outcome.Outcome)
	assert.Contains(t, outcome.Error, "AI_UNAVAILABLE")
}

func TestExecuteAnalyzeUnparseableReplyFailsWithAIParseReason(t *testing.T) {
	mux := http.NewServeMux()
	sampler := &collab.FakeSamplingChannel{Response: "not json"}
	engine, _, _, handleID := newTestEngine(t, mux, sampler)
	result, err := engine.Execute(context.Background(), handleID, handle.All(), []Action{AnalyzeAction([]string{"duplicates"})}, Options{})
	require.NoError(t, err)
	require.Len(t, result.Items[0].Actions, 1)
	outcome := result.Items[0].Actions[0]
	assert.Equal(t, history.Failed, outcome.Outcome)
	assert.Equal(t, "ai-parse", outcome.Reason)
}

func TestExecuteRejectsEmptyActionList(t *testing.T) {
	mux := http.NewServeMux()
	engine, _, _, handleID := newTestEngine(t, mux, nil)
	_, err := engine.Execute(context.Background(), handleID, handle.All(), nil, Options{})
	require.Error(t, err)
}
