package adoclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// WIQLResult is the response shape from POST wit/wiql (spec §6).
type WIQLResult struct {
	WorkItems []struct {
		ID  int    `json:"id"`
		URL string `json:"url"`
	} `json:"workItems"`
	QueryType string `json:"queryType"`
}

// RunWIQL submits query verbatim to ADO's WIQL endpoint (spec §4.3 step 1:
// "Submit the WIQL/OData query to ADO exactly as given").
func (c *Client) RunWIQL(ctx context.Context, query string) (WIQLResult, error) {
	var result WIQLResult
	body := map[string]string{"query": query}
	err := c.Post(ctx, "wit/wiql?api-version="+c.apiVersion, body, &result)
	return result, err
}

// WorkItemFields is a raw field bag as returned by ADO; callers decode the
// entries they need (field ref-name -> raw JSON value already unmarshaled
// into `any` by encoding/json).
type WorkItemFields map[string]any

// WorkItemBatchEntry is one item in a batch GET response.
type WorkItemBatchEntry struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev"`
	Fields WorkItemFields `json:"fields"`
	URL    string         `json:"url"`
}

type workItemBatchResponse struct {
	Value []WorkItemBatchEntry `json:"value"`
}

// GetWorkItemsBatch fetches up to 200 ids in one call with the given
// field bundle (spec §4.3 step 3). ADO itself enforces the 200-id ceiling;
// callers are expected to have already chunked ids accordingly.
func (c *Client) GetWorkItemsBatch(ctx context.Context, ids []int, fields []string) ([]WorkItemBatchEntry, error) {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.Itoa(id)
	}

	relPath := fmt.Sprintf("wit/workitems?ids=%s&fields=%s&api-version=%s",
		strings.Join(idStrs, ","), strings.Join(fields, ","), c.apiVersion)

	var resp workItemBatchResponse
	if err := c.Get(ctx, relPath, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// GetWorkItem fetches a single work item with every field expanded,
// mutually exclusive with a field list per spec §6.
func (c *Client) GetWorkItem(ctx context.Context, id int) (WorkItemBatchEntry, error) {
	var entry WorkItemBatchEntry
	relPath := fmt.Sprintf("wit/workitems/%d?api-version=%s&$expand=all", id, c.apiVersion)
	err := c.Get(ctx, relPath, &entry)
	return entry, err
}

// PatchOp is one RFC 6902 JSON-Patch operation.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// TestRevOp builds the optimistic-concurrency guard prepended to every
// field-update PATCH (spec §6 "PATCH body format").
func TestRevOp(rev int) PatchOp {
	return PatchOp{Op: "test", Path: "/rev", Value: rev}
}

// PatchWorkItem applies ops to id via PATCH, returning the updated entry
// (new rev included). contentType defaults to application/json-patch+json.
func (c *Client) PatchWorkItem(ctx context.Context, id int, ops []PatchOp) (WorkItemBatchEntry, error) {
	var entry WorkItemBatchEntry
	relPath := fmt.Sprintf("wit/workitems/%d?api-version=%s", id, c.apiVersion)
	err := c.Patch(ctx, relPath, ops, "", &entry)
	return entry, err
}

// DeleteWorkItem moves id to the recycle bin, or permanently destroys it
// when destroy is true (spec §6: destroy=true is exposed via the bulk
// `remove` action and marks its OperationRecord irreversible).
func (c *Client) DeleteWorkItem(ctx context.Context, id int, destroy bool) error {
	relPath := fmt.Sprintf("wit/workitems/%d?api-version=%s&destroy=%t", id, c.apiVersion, destroy)
	return c.Delete(ctx, relPath, nil)
}

// Revision is one entry from wit/workitems/{id}/revisions.
type Revision struct {
	ID     int            `json:"id"`
	Rev    int            `json:"rev"`
	Fields WorkItemFields `json:"fields"`
}

type revisionsResponse struct {
	Value []Revision `json:"value"`
}

// GetRevisions fetches up to top revisions for id, used by C2's
// substantive-change analyzer (spec §4.2).
func (c *Client) GetRevisions(ctx context.Context, id int, top int) ([]Revision, error) {
	relPath := fmt.Sprintf("wit/workitems/%d/revisions?$top=%d&api-version=%s", id, top, c.apiVersion)
	var resp revisionsResponse
	if err := c.Get(ctx, relPath, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

// Comment is one entry from wit/workitems/{id}/comments.
type Comment struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type commentsResponse struct {
	Comments []Comment `json:"comments"`
}

// GetComments fetches a page of comments for id (spec §6, "full package"
// mode, spec §4.3).
func (c *Client) GetComments(ctx context.Context, id int) ([]Comment, error) {
	relPath := fmt.Sprintf("wit/workitems/%d/comments?api-version=%s-preview.3", id, c.apiVersion)
	var resp commentsResponse
	if err := c.Get(ctx, relPath, &resp); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// AddComment posts a new comment, used by C6's `comment` action (spec
// §4.6). Returns the created comment (with its id, needed for the
// action's inverse: delete comment by id).
func (c *Client) AddComment(ctx context.Context, id int, text string) (Comment, error) {
	relPath := fmt.Sprintf("wit/workitems/%d/comments?api-version=%s-preview.3", id, c.apiVersion)
	var created Comment
	err := c.Post(ctx, relPath, map[string]string{"text": text}, &created)
	return created, err
}

// DeleteComment removes a comment by id, the inverse of AddComment (spec
// §4.6 `comment` action's inverse).
func (c *Client) DeleteComment(ctx context.Context, workItemID, commentID int) error {
	relPath := fmt.Sprintf("wit/workitems/%d/comments/%d?api-version=%s-preview.3", workItemID, commentID, c.apiVersion)
	return c.Delete(ctx, relPath, nil)
}
