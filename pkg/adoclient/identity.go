package adoclient

import (
	"context"
	"net/url"

	"github.com/adomcp/bridge/pkg/adoerrors"
	"github.com/adomcp/bridge/pkg/handle"
)

// identityLookupResponse mirrors the subset of ADO's identity-picker
// response this client needs: display name, unique name (email/UPN), and
// the opaque identity id referenced by System.AssignedTo-shaped fields.
type identityLookupResponse struct {
	Value []struct {
		DisplayName string `json:"displayName"`
		UniqueName  string `json:"uniqueName"`
		ID          string `json:"id"`
	} `json:"value"`
}

// ResolveIdentity looks up a single identity by unique name (UPN or
// email), used by C6's `assign` action to validate an assignTo target
// before issuing the PATCH (spec §1 "Identity/Repo lookup used by the
// above"). Returns NOT_FOUND if ADO has no matching identity.
func (c *Client) ResolveIdentity(ctx context.Context, uniqueName string) (handle.Identity, error) {
	var resp identityLookupResponse
	relPath := "identities?searchFilter=General&filterValue=" + url.QueryEscape(uniqueName)
	if err := c.Get(ctx, relPath, &resp); err != nil {
		return handle.Identity{}, err
	}
	if len(resp.Value) == 0 {
		return handle.Identity{}, notFoundIdentity(uniqueName)
	}
	first := resp.Value[0]
	return handle.Identity{
		DisplayName: first.DisplayName,
		UniqueName:  first.UniqueName,
		ID:          first.ID,
	}, nil
}

func notFoundIdentity(uniqueName string) error {
	return adoerrors.Newf(adoerrors.NotFound, "no ado identity found for %q", uniqueName)
}
