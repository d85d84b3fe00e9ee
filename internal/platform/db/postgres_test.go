package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestConnectRequiresDSN(t *testing.T) {
	_, err := Connect(context.Background(), "", DefaultPoolOptions(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dsn is required")
}

func TestCloseNilIsNoop(t *testing.T) {
	var pg *Postgres
	assert.NoError(t, pg.Close())
	assert.NoError(t, (&Postgres{}).Close())
}

func TestCloseReleasesSQLHandle(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	mock.ExpectClose()
	require.NoError(t, (&Postgres{DB: gdb}).Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
