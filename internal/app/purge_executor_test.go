package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artycleaner/tests/testutil"
)

func TestPurgeExecutorDryRunIssuesNoDeletes(t *testing.T) {
	store := testutil.NewFakeStore()
	outcome := NewPurgeExecutor(store, true).Execute(t.Context(), "docker-local", []string{"app/v1", "app/v2"})

	assert.True(t, outcome.DryRun)
	assert.Equal(t, []string{"app/v1", "app/v2"}, outcome.Deleted)
	assert.Empty(t, outcome.Failures)
	assert.Zero(t, store.CallCount("delete"))
}

func TestPurgeExecutorContinuesAfterFailure(t *testing.T) {
	store := testutil.NewFakeStore()
	store.FailOn("delete", "generic-local", "b.zip", errors.New("permission denied"))

	outcome := NewPurgeExecutor(store, false).Execute(t.Context(), "generic-local", []string{"a.zip", "b.zip", "c.zip"})

	assert.Equal(t, []string{"a.zip", "c.zip"}, outcome.Deleted)
	require.Len(t, outcome.Failures, 1)
	assert.Equal(t, "b.zip", outcome.Failures[0].Path)
	assert.EqualError(t, outcome.Failures[0].Err, "permission denied")
	assert.Equal(t, []string{"generic-local:a.zip", "generic-local:c.zip"}, store.Deleted)
	assert.Equal(t, 3, store.CallCount("delete"))
}

func TestPurgeExecutorNothingToDelete(t *testing.T) {
	store := testutil.NewFakeStore()
	outcome := NewPurgeExecutor(store, false).Execute(t.Context(), "generic-local", nil)
	assert.Empty(t, outcome.Deleted)
	assert.Empty(t, outcome.Failures)
	assert.Empty(t, store.Calls)
}
