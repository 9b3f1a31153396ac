package sqlstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// requireDB opens a connection using UNS_MYSQL_DSN, skipping the test when
// it is not set — these are integration tests against a real MySQL-wire
// compatible server, not unit tests.
func requireDB(t *testing.T) *Realtime {
	t.Helper()
	dsn := os.Getenv("UNS_MYSQL_DSN")
	if dsn == "" {
		t.Skip("UNS_MYSQL_DSN not set, skipping sqlstore integration test")
	}
	db, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRealtime(db)
}

func TestRealtime_PutAndGetLatest(t *testing.T) {
	rt := requireDB(t)
	now := time.Now().Truncate(time.Millisecond)
	require.NoError(t, rt.Put(context.Background(), model.DataPoint{Topic: "sqlstore-test", Value: "1", Timestamp: now}))

	dp, ok, err := rt.GetLatest(context.Background(), "sqlstore-test")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sqlstore-test", dp.Topic)
}
