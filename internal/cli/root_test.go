package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgsync/internal/config"
	"github.com/roach88/cfgsync/internal/docstore/gist"
	"github.com/roach88/cfgsync/internal/docstore/s3store"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cfgsync", cmd.Use)
	assert.Contains(t, cmd.Long, "exec")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "push", "pull", "history"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "store", "github-api", "journal", "log-level", "log-format", "log-file"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing global flag --%s", name)
	}
}

func TestPushPullCommandFlags(t *testing.T) {
	cmd := NewRootCommand()

	pushCmd, _, err := cmd.Find([]string{"push"})
	require.NoError(t, err)
	assert.NotNil(t, pushCmd.Flags().Lookup("gist-id"))
	assert.NotNil(t, pushCmd.Flags().Lookup("dry-run"))
	assert.Equal(t, "t", pushCmd.Flags().Lookup("access-token").Shorthand)

	pullCmd, _, err := cmd.Find([]string{"pull"})
	require.NoError(t, err)
	assert.Equal(t, "u", pullCmd.Flags().Lookup("update-only").Shorthand)
	assert.Equal(t, "t", pullCmd.Flags().Lookup("access-token").Shorthand)
	assert.NotNil(t, pullCmd.Flags().Lookup("workers"))
}

func TestInvalidFormat(t *testing.T) {
	isolateEnv(t)
	cmd := NewRootCommand()
	_, err := execute(cmd, "--format", "xml", "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
}

func TestDefaultStoreFactory(t *testing.T) {
	ctx := context.Background()

	st, err := DefaultStoreFactory(ctx, &config.Config{Store: config.StoreGist, GitHubAPI: gist.DefaultAPI, AccessToken: "tok"})
	require.NoError(t, err)
	assert.IsType(t, &gist.Client{}, st)

	st, err = DefaultStoreFactory(ctx, &config.Config{Store: config.StoreS3, S3: config.S3Config{
		Endpoint:  "localhost:9000",
		Bucket:    "cfg",
		AccessKey: "a",
		SecretKey: "b",
	}})
	require.NoError(t, err)
	assert.IsType(t, &s3store.Store{}, st)

	st, err = DefaultStoreFactory(ctx, &config.Config{Store: config.StoreS3})
	require.Error(t, err)
	assert.Nil(t, st)
}
