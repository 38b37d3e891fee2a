package main

import (
	"context"
	"testing"
	"time"

	"github.com/CTAG07/bayesnet/pkg/bayes"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	h := setupHistory(t)

	first := &Run{
		Evidence: bayes.Evidence{"burglary": "T"},
		Query:    []string{"John_calls"},
		Steps:    1000,
		Estimate: bayes.Estimate{"John_calls": {"T": 0.875, "F": 0.125}},
		Duration: 3 * time.Millisecond,
	}
	second := &Run{
		Evidence: bayes.Evidence{},
		Query:    []string{"alarm", "earthquake"},
		Steps:    50,
		Estimate: bayes.Estimate{"alarm": {"T": 0, "F": 1}, "earthquake": {"T": 0.02, "F": 0.98}},
		Duration: time.Millisecond,
	}
	require.NoError(t, h.Record(ctx, first))
	require.NoError(t, h.Record(ctx, second))

	_, err := uuid.Parse(first.ID)
	assert.NoError(t, err, "Record should assign a uuid")
	assert.False(t, first.CreatedAt.IsZero())

	runs, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	got := runs[1]
	assert.Equal(t, first.Evidence, got.Evidence)
	assert.Equal(t, first.Query, got.Query)
	assert.Equal(t, first.Steps, got.Steps)
	assert.Equal(t, first.Estimate, got.Estimate)
	assert.Equal(t, first.Duration, got.Duration)
	assert.WithinDuration(t, first.CreatedAt, got.CreatedAt, time.Second)

	count, err := h.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestHistoryRecentLimit(t *testing.T) {
	ctx := context.Background()
	h := setupHistory(t)

	for i := range 5 {
		require.NoError(t, h.Record(ctx, &Run{
			Evidence: bayes.Evidence{},
			Query:    []string{"A"},
			Steps:    i + 1,
			Estimate: bayes.Estimate{"A": {"T": 1}},
		}))
	}

	runs, err := h.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []int{5, 4, 3}, []int{runs[0].Steps, runs[1].Steps, runs[2].Steps})
}

func TestHistoryKeepsGivenID(t *testing.T) {
	ctx := context.Background()
	h := setupHistory(t)

	id := uuid.NewString()
	require.NoError(t, h.Record(ctx, &Run{ID: id, Evidence: bayes.Evidence{}, Query: []string{"A"}, Steps: 1}))
	err := h.Record(ctx, &Run{ID: id, Evidence: bayes.Evidence{}, Query: []string{"A"}, Steps: 1})
	assert.Error(t, err, "a duplicate id must be rejected")

	runs, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
}
