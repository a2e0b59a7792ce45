package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yml := `
env: local
location: Europe/Warsaw
listen:
  port: "9090"
storage:
  driver: postgres
postgres:
  url: postgres://evc@localhost/evc
telegram:
  enabled: true
  chat_ids: [101, 202]
  digest_topics: [redemption]
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))

	conf := MustLoad(path)
	require.NotNil(t, conf)
	assert.Equal(t, "Europe/Warsaw", conf.Location)
	assert.Equal(t, "9090", conf.Listen.Port)
	assert.Equal(t, "0.0.0.0", conf.Listen.BindIp)
	assert.Equal(t, "X-Customer-Id", conf.Listen.CustomerHeader)
	assert.Equal(t, DriverPostgres, conf.Storage.Driver)
	assert.Equal(t, "evc_", conf.MySQL.Prefix)
	assert.False(t, conf.Mongo.Enabled)
	assert.Equal(t, []int64{101, 202}, conf.Telegram.ChatIDs)
	assert.Equal(t, []string{"redemption"}, conf.Telegram.DigestTopics)
	assert.Equal(t, 60, conf.Telegram.DigestMinutes)
	assert.Equal(t, "warn", conf.Telegram.MinLevel)
}
