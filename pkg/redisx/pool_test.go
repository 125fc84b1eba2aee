package redisx

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploywatch/scanner-qualys/pkg/etc"
)

func TestNewClient(t *testing.T) {

	t.Run("Should return error when configured to connect to secure redis", func(t *testing.T) {
		_, err := NewClient(etc.RedisPool{
			URL: "rediss://hostname:6379",
		})
		assert.EqualError(t, err, "invalid redis URL scheme: rediss")
	})

	t.Run("Should return error when configured with unsupported url scheme", func(t *testing.T) {
		_, err := NewClient(etc.RedisPool{
			URL: "https://hostname:6379",
		})
		assert.EqualError(t, err, "invalid redis URL scheme: https")
	})

}

func TestParseSentinelURL(t *testing.T) {
	configURL, err := url.Parse("redis+sentinel://:password@host1:26379,host2:26379/mymaster/5")
	require.NoError(t, err)

	sentinelURL, err := ParseSentinelURL(configURL)
	require.NoError(t, err)
	assert.Equal(t, SentinelURL{
		Password:    "password",
		Addrs:       []string{"host1:26379", "host2:26379"},
		MonitorName: "mymaster",
		Database:    5,
	}, sentinelURL)
}
