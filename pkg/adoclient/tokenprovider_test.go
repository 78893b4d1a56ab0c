package adoclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAzureADTokenProviderBuildsCredential(t *testing.T) {
	provider, err := NewAzureADTokenProvider("11111111-1111-1111-1111-111111111111", "22222222-2222-2222-2222-222222222222", "fake-secret")
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestNewAzureADTokenProviderRejectsEmptyTenant(t *testing.T) {
	_, err := NewAzureADTokenProvider("", "22222222-2222-2222-2222-222222222222", "fake-secret")
	assert.Error(t, err)
}
