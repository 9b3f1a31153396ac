package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomassorensen2650/unsinfra/internal/model"
)

func TestRealtime_PutThenGetLatest(t *testing.T) {
	s := NewRealtime()
	now := time.Now()
	require.NoError(t, s.Put(context.Background(), model.DataPoint{Topic: "t1", Value: 1, Timestamp: now}))
	require.NoError(t, s.Put(context.Background(), model.DataPoint{Topic: "t1", Value: 2, Timestamp: now.Add(time.Second)}))

	dp, ok, err := s.GetLatest(context.Background(), "t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, dp.Value) // Put always overwrites; caller is responsible for ordering
}

func TestRealtime_GetLatestMissingTopic(t *testing.T) {
	s := NewRealtime()
	_, ok, err := s.GetLatest(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHistorical_PutBulkThenQuery(t *testing.T) {
	s := NewHistorical()
	now := time.Now()
	require.NoError(t, s.PutBulk(context.Background(), []model.DataPoint{
		{Topic: "t1", Value: 1, Timestamp: now},
		{Topic: "t1", Value: 2, Timestamp: now.Add(time.Minute)},
		{Topic: "t2", Value: 99, Timestamp: now},
	}))

	var got []model.DataPoint
	for dp := range s.Query(context.Background(), "t1", now.Add(-time.Hour), now.Add(time.Hour)) {
		got = append(got, dp)
	}
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Value)
	assert.Equal(t, 2, got[1].Value)
}

func TestHistorical_QueryFiltersByTimeRange(t *testing.T) {
	s := NewHistorical()
	now := time.Now()
	require.NoError(t, s.PutBulk(context.Background(), []model.DataPoint{
		{Topic: "t1", Value: 1, Timestamp: now},
		{Topic: "t1", Value: 2, Timestamp: now.Add(time.Hour)},
	}))

	var got []model.DataPoint
	for dp := range s.Query(context.Background(), "t1", now.Add(-time.Minute), now.Add(time.Minute)) {
		got = append(got, dp)
	}
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Value)
}

func TestHistorical_PutBulkOnEmptyDisabledHistoryStillSucceeds(t *testing.T) {
	s := NewHistorical()
	assert.NoError(t, s.PutBulk(context.Background(), nil))
}
