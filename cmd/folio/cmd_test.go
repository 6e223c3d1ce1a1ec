package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/folio/site"
)

func TestToTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"my-site", "My Site"},
		{"portfolio", "Portfolio"},
		{"jane_doe-dev", "Jane Doe Dev"},
	}
	for _, tt := range tests {
		if got := toTitle(tt.in); got != tt.want {
			t.Errorf("toTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword("s3cret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))

	_, err = hashPassword("")
	assert.Error(t, err)
}

func TestHashPasswordFromStdin(t *testing.T) {
	var out bytes.Buffer
	hashPasswordCmd.SetIn(strings.NewReader("hunter2\n"))
	hashPasswordCmd.SetOut(&out)
	t.Cleanup(func() {
		hashPasswordCmd.SetIn(nil)
		hashPasswordCmd.SetOut(nil)
	})

	require.NoError(t, hashPasswordCmd.RunE(hashPasswordCmd, nil))
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))
}

func TestSiteConfigFromEnv(t *testing.T) {
	t.Setenv("SITE_NAME", "Jane Doe")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("POST_CACHE_TTL", "30s")
	t.Setenv("WATCH_DATA_DIR", "false")
	t.Setenv("ADMIN_SESSION_SECRET", "shh")

	cv := viper.New()
	setDefaults(cv)
	cv.AutomaticEnv()

	cfg := siteConfig(cv)
	assert.Equal(t, "Jane Doe", cfg.Name)
	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, 30*time.Second, cfg.PostCacheTTL)
	assert.True(t, cfg.DisableWatch)
	assert.Equal(t, "shh", cfg.SessionSecret)
	assert.Equal(t, "admin", cfg.AdminUser)
	assert.Equal(t, ":3000", cfg.Addr)
}

func TestSiteConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site_name: From File\ndata_dir: content\n"), 0o644))

	cv := viper.New()
	setDefaults(cv)
	cv.SetConfigFile(path)
	require.NoError(t, cv.ReadInConfig())

	cfg := siteConfig(cv)
	assert.Equal(t, "From File", cfg.Name)
	assert.Equal(t, "content", cfg.DataDir)
	assert.Equal(t, "file", cfg.StorageDriver)
}

func TestRunInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-site")
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, runInit(cmd, dir))

	for _, f := range []string{".env", "folio.yaml", "site.yaml", "data/posts.json", "data/contacts.json", "data/blog/.gitkeep"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}

	env, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Regexp(t, `ADMIN_SESSION_SECRET=[0-9a-f]{64}`, string(env))

	cfg, err := os.ReadFile(filepath.Join(dir, "folio.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), `site_name: "My Site"`)

	content, err := site.Load(filepath.Join(dir, "site.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "My Site", content.Profile.Name)

	assert.Error(t, runInit(cmd, dir), "existing directory must be rejected")
}
