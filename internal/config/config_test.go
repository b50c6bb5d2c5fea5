package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/docstore/gist"
	"github.com/roach88/cfgsync/internal/testutil"
)

// isolate clears variables that would leak the developer's environment into
// a test.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"GITHUB_TOKEN", "CFGSYNC_GIST_ID", "CFGSYNC_ACCESS_TOKEN", "CFGSYNC_STORE", "CFGSYNC_WORKERS", "CFGSYNC_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return t.TempDir()
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("gist-id", "", "")
	fs.StringP("access-token", "t", "", "")
	fs.String("store", "", "")
	fs.Int("workers", 0, "")
	fs.String("log-level", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, StoreGist, cfg.Store)
	assert.Equal(t, gist.DefaultAPI, cfg.GitHubAPI)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.True(t, cfg.S3.UseSSL)
	assert.Equal(t, DefaultJournalPath(), cfg.Journal)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	testutil.WriteTree(t, dir, map[string]string{
		"cfgsync.yaml": "gist_id: from-file\nworkers: 2\nlog:\n  level: debug\n",
	})
	t.Setenv("CFGSYNC_WORKERS", "4")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--gist-id", "from-flag"}))

	cfg, err := Load(LoadOptions{Dir: dir, Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.GistID, "flag beats file")
	assert.Equal(t, 4, cfg.Workers, "env beats file")
	assert.Equal(t, "debug", cfg.Log.Level, "file beats default")
	assert.Equal(t, StoreGist, cfg.Store, "unset flag does not override default")
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	testutil.WriteTree(t, dir, map[string]string{
		"custom.yaml": "store: s3\ns3:\n  endpoint: localhost:9000\n  bucket: cfgs\n  use_ssl: false\n",
	})

	cfg, err := Load(LoadOptions{Dir: dir, ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, StoreS3, cfg.Store)
	assert.Equal(t, "localhost:9000", cfg.S3.Endpoint)
	assert.False(t, cfg.S3.UseSSL)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(LoadOptions{Dir: dir, ConfigFile: filepath.Join(dir, "nope.yaml")})
	assert.ErrorIs(t, err, cfgerr.ErrInvalidConfig)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	testutil.WriteTree(t, dir, map[string]string{".env": "CFGSYNC_ACCESS_TOKEN=from-dotenv\n"})
	t.Cleanup(func() { os.Unsetenv("CFGSYNC_ACCESS_TOKEN") })

	cfg, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.AccessToken)
}

func TestLoad_GitHubTokenFallback(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GITHUB_TOKEN", "ghp_fallback")

	cfg, err := Load(LoadOptions{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "ghp_fallback", cfg.AccessToken)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"-t", "explicit"}))
	cfg, err = Load(LoadOptions{Dir: dir, Flags: flags})
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.AccessToken)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	dir := isolate(t)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--store", "ftp", "--log-level", "loud"}))
	_, err := Load(LoadOptions{Dir: dir, Flags: flags})
	require.Error(t, err)
	assert.ErrorIs(t, err, cfgerr.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "store")
	assert.Contains(t, err.Error(), "log.level")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:     StoreGist,
			GitHubAPI: "https://api.github.com",
			Log:       LogConfig{Level: "info", Format: "json"},
		}
	}
	require.NoError(t, Validate(valid()))

	negative := valid()
	negative.Workers = -1
	assert.ErrorIs(t, Validate(negative), cfgerr.ErrInvalidConfig)

	badAPI := valid()
	badAPI.GitHubAPI = "api.github.com"
	assert.ErrorIs(t, Validate(badAPI), cfgerr.ErrInvalidConfig)

	badFormat := valid()
	badFormat.Log.Format = "xml"
	assert.ErrorIs(t, Validate(badFormat), cfgerr.ErrInvalidConfig)
}

func TestRequireRemote(t *testing.T) {
	cfg := &Config{Store: StoreGist}
	assert.ErrorContains(t, cfg.RequireRemote(), "collection id")

	cfg.GistID = "abc"
	assert.ErrorContains(t, cfg.RequireRemote(), "access token")

	cfg.AccessToken = "tok"
	assert.NoError(t, cfg.RequireRemote())

	s3 := &Config{Store: StoreS3, GistID: "team"}
	assert.ErrorContains(t, s3.RequireRemote(), "s3.endpoint")
	s3.S3 = S3Config{Endpoint: "localhost:9000", Bucket: "cfgs"}
	assert.ErrorContains(t, s3.RequireRemote(), "s3.access_key")
	s3.S3.AccessKey, s3.S3.SecretKey = "a", "s"
	assert.NoError(t, s3.RequireRemote())
}
