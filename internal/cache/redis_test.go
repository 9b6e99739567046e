package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	c := InitRedis(mr.Addr())
	require.NotNil(t, c)
	assert.Same(t, c, GetClient())

	require.NoError(t, c.Set(context.Background(), BlacklistKey("abc"), "1", 0).Err())
	assert.True(t, mr.Exists("blacklist:abc"))
	_ = c.Close()
}

func TestInitRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	assert.Nil(t, InitRedis(addr))
	assert.Nil(t, GetClient())
}

func TestNewClient_URL(t *testing.T) {
	c, err := NewClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Options().DB)
	_ = c.Close()

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}
