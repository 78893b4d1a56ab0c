package wiql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adomcp/bridge/pkg/adoclient"
	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/collab"
	"github.com/adomcp/bridge/pkg/handle"
)

func newTestExecutor(t *testing.T, mux *http.ServeMux) (*Executor, *handle.Store) {
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
	return New(client, store, clock, collab.NoopLogger{}), store
}

func TestExecuteRejectsWorkItemLinksWithOrderBy(t *testing.T) {
	mux := http.NewServeMux()
	executor, _ := newTestExecutor(t, mux)

	query := "SELECT [System.Id] FROM WorkItemLinks ORDER BY [System.Id]"
	_, err := executor.Execute(context.Background(), query, handle.QueryKindWIQL, "contoso", "widgets", Options{})
	require.Error(t, err)
	assert.Equal(t, adoerrors.QueryUnsupported, adoerrors.CategoryOf(err))
}

func TestExecuteStoresHandleAndReturnsPreview(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/wiql", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(adoclient.WIQLResult{
			WorkItems: []struct {
				ID  int    `json:"id"`
				URL string `json:"url"`
			}{{ID: 101}, {ID: 102}},
		})
	})
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{"id": 101, "rev": 3, "fields": map[string]any{
					"System.Title": "Fix login crash", "System.State": "Active", "System.WorkItemType": "Bug",
					"System.CreatedDate": "2026-01-01T00:00:00Z", "System.ChangedDate": "2026-07-01T00:00:00Z",
				}},
				{"id": 102, "rev": 1, "fields": map[string]any{
					"System.Title": "Add dark mode", "System.State": "New", "System.WorkItemType": "Feature",
					"System.CreatedDate": "2026-02-01T00:00:00Z", "System.ChangedDate": "2026-07-15T00:00:00Z",
				}},
			},
		})
	})

	executor, store := newTestExecutor(t, mux)

	result, err := executor.Execute(context.Background(), "SELECT [System.Id] FROM WorkItems", handle.QueryKindWIQL, "contoso", "widgets", Options{PreviewCount: 10})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.HandleID, "qh_"))
	assert.Len(t, result.Preview, 2)

	h, err := store.Get(result.HandleID)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102}, h.WorkItemIDs)
	assert.Equal(t, "Fix login crash", h.ItemContext[0].Title)
}

func TestExecutePaginationSetsHasMore(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/wiql", func(w http.ResponseWriter, r *http.Request) {
		items := make([]struct {
			ID  int    `json:"id"`
			URL string `json:"url"`
		}, 5)
		for i := range items {
			items[i].ID = 100 + i
		}
		_ = json.NewEncoder(w).Encode(adoclient.WIQLResult{WorkItems: items})
	})
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems", func(w http.ResponseWriter, r *http.Request) {
		idStrs := strings.Split(strings.TrimPrefix(strings.Split(r.URL.RawQuery, "&")[0], "ids="), ",")
		values := make([]map[string]any, 0, len(idStrs))
		for _, idStr := range idStrs {
			id, convErr := strconv.Atoi(idStr)
			require.NoError(t, convErr)
			values = append(values, map[string]any{
				"id": id, "rev": 1, "fields": map[string]any{
					"System.Title": "item", "System.State": "Active", "System.WorkItemType": "Bug",
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"value": values})
	})

	executor, _ := newTestExecutor(t, mux)
	result, err := executor.Execute(context.Background(), "SELECT [System.Id] FROM WorkItems", handle.QueryKindWIQL, "contoso", "widgets", Options{Top: 2, PreviewCount: 10})
	require.NoError(t, err)
	assert.True(t, result.HasMore)
}

func TestExecuteFiltersByMissingDescription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contoso/widgets/_apis/wit/wiql", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(adoclient.WIQLResult{
			WorkItems: []struct {
				ID  int    `json:"id"`
				URL string `json:"url"`
			}{{ID: 101}, {ID: 102}},
		})
	})
	mux.HandleFunc("/contoso/widgets/_apis/wit/workitems", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]any{
				{"id": 101, "rev": 1, "fields": map[string]any{"System.Title": "a", "System.Description": ""}},
				{"id": 102, "rev": 1, "fields": map[string]any{"System.Title": "b", "System.Description": "has text"}},
			},
		})
	})

	executor, store := newTestExecutor(t, mux)
	result, err := executor.Execute(context.Background(), "SELECT [System.Id] FROM WorkItems", handle.QueryKindWIQL, "contoso", "widgets", Options{
		FilterByMissingDescription: true,
		PreviewCount:               10,
	})
	require.NoError(t, err)

	h, err := store.Get(result.HandleID)
	require.NoError(t, err)
	require.Len(t, h.ItemContext, 1)
	assert.Equal(t, 101, h.ItemContext[0].ID)
	assert.Equal(t, 0, h.ItemContext[0].Index)
}

func TestToStalenessRevisionsExtractsAuthorFromIdentityObject(t *testing.T) {
	revs := []adoclient.Revision{
		{
			ID: 101, Rev: 2,
			Fields: adoclient.WorkItemFields{
				"System.ChangedBy": map[string]any{
					"displayName": "Project Collection Build Service",
					"uniqueName":  "00000002-0000-8888-8000-000000000000@contoso",
				},
				"System.ChangedDate": "2026-07-29T00:00:00Z",
			},
		},
	}

	out := toStalenessRevisions(revs)
	require.Len(t, out, 1)
	assert.Equal(t, "Project Collection Build Service", out[0].AuthorName)
}

func TestStringifyFieldsDiffsIdentityFieldsByUniqueName(t *testing.T) {
	before := stringifyFields(adoclient.WorkItemFields{
		"System.AssignedTo": map[string]any{"displayName": "Dana Human", "uniqueName": "dana@contoso"},
	})
	after := stringifyFields(adoclient.WorkItemFields{
		"System.AssignedTo": map[string]any{"displayName": "Sam Human", "uniqueName": "sam@contoso"},
	})

	assert.NotEqual(t, before["System.AssignedTo"], after["System.AssignedTo"])
	assert.Equal(t, "dana@contoso", before["System.AssignedTo"])
}
