package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectPingsServer(t *testing.T) {
	server := miniredis.RunT(t)

	client, err := Connect(context.Background(), server.Addr(), nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	server.CheckGet(t, "k", "v")
}

func TestConnectFailsWhenServerDown(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	_, err := Connect(context.Background(), addr, nil)
	assert.Error(t, err)
}

func TestConnectRequiresAddr(t *testing.T) {
	_, err := Connect(context.Background(), "", nil)
	assert.Error(t, err)
}
