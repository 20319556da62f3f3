package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradingstudents-api/internal/models"
)

func TestConnectUsesSQLiteForFileDSN(t *testing.T) {
	db, err := Connect("file:database_connect?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	quiz := models.Quiz{Name: "Essay quiz"}
	require.NoError(t, db.Create(&quiz).Error)
	require.NotZero(t, quiz.ID)
}

func TestConnectRejectsEmptyDSN(t *testing.T) {
	_, err := Connect("")
	require.Error(t, err)

	_, err = ConnectNATS("", "grading")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+server.Addr(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	require.NoError(t, PingRedis(client)(context.Background()))
}

func TestConnectRedisFailsWhenServerGone(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := ConnectRedis(context.Background(), "redis://"+addr, 200*time.Millisecond)
	require.Error(t, err)

	_, err = ConnectRedis(context.Background(), "", 0)
	require.Error(t, err)
}

func TestPingDatabase(t *testing.T) {
	db, err := Connect("file:database_ping?mode=memory&cache=shared")
	require.NoError(t, err)

	require.NoError(t, PingDatabase(db)(context.Background()))
	require.Error(t, PingDatabase(nil)(context.Background()))
	require.Error(t, PingNATS(nil)(context.Background()))
}
