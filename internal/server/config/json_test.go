package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr":        "www.example:9000",
		"base_url":             "https://lastword.example",
		"database_path":        "lastword.db",
		"node_name":            "node1",
		"sweep_interval":       "30m",
		"snapshot_interval":    "12h",
		"call_timeout":         "10s",
		"disable_checkin_sync": true,
		"s3_access_key":        "user",
		"s3_secret_key":        "password",
		"s3_bucket":            "bucket",
		"s3_region":            "region",
		"s3_base_endpoint":     "base_endpoint",
		"smtp_host":            "mail.example",
		"smtp_port":            465,
		"smtp_from":            "noreply@lastword.example",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddr)
		assert.Equal(t, "https://lastword.example", cfg.BaseURL)
		assert.Equal(t, "lastword.db", cfg.DatabasePath)
		assert.Equal(t, "node1", cfg.NodeName)
		assert.Equal(t, 30*time.Minute, cfg.SweepInterval)
		assert.Equal(t, 12*time.Hour, cfg.SnapshotInterval)
		assert.Equal(t, 10*time.Second, cfg.CallTimeout)
		assert.True(t, cfg.DisableCheckinSync)
		assert.Equal(t, "user", cfg.S3AccessKey)
		assert.Equal(t, "password", cfg.S3SecretKey)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, "mail.example", cfg.SMTPHost)
		assert.Equal(t, 465, cfg.SMTPPort)
		assert.Equal(t, "noreply@lastword.example", cfg.SMTPFrom)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"endpoint_addr": "partial:1234",
		})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "partial:1234", cfg.EndpointAddr)
		assert.Equal(t, "data/lastword.sqlite", cfg.DatabasePath)
		assert.Equal(t, 1*time.Hour, cfg.SweepInterval)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddr: "defaults:1234",
			DatabasePath: "lastword.db",
			NodeName:     "node2",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddr)
		assert.Equal(t, "lastword.db", cfg.DatabasePath)
		assert.Equal(t, "node2", cfg.NodeName)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
