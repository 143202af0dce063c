package database

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/oddsradar-go/internal/config"
	"github.com/irfndi/oddsradar-go/internal/testutil"
)

func TestNewRedisConnection(t *testing.T) {
	s, _ := testutil.NewRedis(t)
	host, portStr, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	rc, err := NewRedisConnection(config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer rc.Close()

	assert.NoError(t, rc.HealthCheck(context.Background()))

	s.Close()
	assert.Error(t, rc.HealthCheck(context.Background()))
}

func TestNewRedisConnection_Unreachable(t *testing.T) {
	s, _ := testutil.NewRedis(t)
	host, portStr, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	s.Close()

	_, err = NewRedisConnection(config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}
