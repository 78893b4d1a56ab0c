package handle

import (
	"testing"
	"time"

	"github.com/adomcp/bridge/pkg/collab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeBoundsPreview(t *testing.T) {
	clock := collab.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewStore(clock, collab.NoopLogger{}, time.Minute)

	id, err := store.StoreHandle(newTestHandle(5), time.Hour)
	require.NoError(t, err)

	summary, err := store.Describe(id, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.TotalItems)
	assert.Equal(t, 5, summary.SelectedItems)
	assert.Len(t, summary.Preview, 2)
	assert.Equal(t, 3600, summary.ExpiresInSec)
}

func TestDescribeWithSelector(t *testing.T) {
	clock := collab.NewFixedClock(time.Now())
	store := NewStore(clock, collab.NoopLogger{}, time.Minute)

	id, err := store.StoreHandle(newTestHandle(4), time.Hour)
	require.NoError(t, err)

	sel := ByIndices([]int{1, 2})
	summary, err := store.Describe(id, 10, &sel)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalItems)
	assert.Equal(t, 2, summary.SelectedItems)
	assert.Len(t, summary.Preview, 2)
}

func TestDescribeUnknownHandle(t *testing.T) {
	clock := collab.NewFixedClock(time.Now())
	store := NewStore(clock, collab.NoopLogger{}, time.Minute)

	_, err := store.Describe("qh_missing", 5, nil)
	require.Error(t, err)
}
