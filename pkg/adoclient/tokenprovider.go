package adoclient

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/adomcp/bridge/pkg/adoerrors"
)

// AzureADTokenProvider is the production collab.TokenProvider, acquiring
// bearer tokens for Azure DevOps via an Azure AD app registration's
// client-credentials flow. Construction mirrors the
// azidentity.NewClientSecretCredential call used for service-to-service
// Graph access elsewhere in this ecosystem; here the credential is scoped
// to ADO's resource id instead of Graph's.
type AzureADTokenProvider struct {
	cred *azidentity.ClientSecretCredential
}

// NewAzureADTokenProvider builds a token provider for the given Azure AD
// tenant and app registration. clientSecret is read once at construction
// time; callers are expected to source it from an environment variable or
// secret store, never a literal (spec §6 "secrets never in config files").
func NewAzureADTokenProvider(tenantID, clientID, clientSecret string) (*AzureADTokenProvider, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	if err != nil {
		return nil, adoerrors.Wrap(adoerrors.Auth, "building azure ad client secret credential", err)
	}
	return &AzureADTokenProvider{cred: cred}, nil
}

// GetToken implements collab.TokenProvider. resource is an Azure AD
// resource id (app id URI or GUID, e.g. config.ADOTokenResource); azcore
// requires it in "{resource}/.default" scope form.
func (p *AzureADTokenProvider) GetToken(ctx context.Context, resource string) (string, error) {
	token, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{fmt.Sprintf("%s/.default", resource)},
	})
	if err != nil {
		return "", adoerrors.Wrap(adoerrors.Auth, "acquiring azure ad token", err)
	}
	return token.Token, nil
}
