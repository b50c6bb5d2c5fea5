package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgsync/internal/docstore"
	"github.com/roach88/cfgsync/internal/journal"
	"github.com/roach88/cfgsync/internal/syncer"
	"github.com/roach88/cfgsync/internal/testutil"
)

func TestPush_UploadsTreeAndRecordsRun(t *testing.T) {
	journalPath := isolateEnv(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, gameTree)

	store := docstore.NewMemory()
	store.Seed("abc", docstore.Collection{"stale.cfg": "// stale.cfg\nold\n"})

	cmd := NewPushCommand(testRootOptions("text", store))
	output, err := execute(cmd, dir, "autoexec.cfg", "--gist-id", "abc", "-t", "secret")
	require.NoError(t, err)

	assert.Contains(t, output, "✓ Pushed 4 document(s)")
	assert.Contains(t, output, "memory://abc")
	assert.Contains(t, output, "stale.cfg")

	remote := store.Snapshot("abc")
	assert.ElementsMatch(t, []string{"README.md", "autoexec.cfg", "video.cfg", "keys.cfg"}, remote.Names())
	assert.Equal(t, "// binds/keys.cfg\nbind w +forward\n", remote["keys.cfg"])
	assert.Equal(t, "# Compiled on 2024-03-09 18:30:00\n\n", remote["README.md"])

	j, err := journal.Open(journalPath)
	require.NoError(t, err)
	defer j.Close()
	runs, err := j.ListRuns(context.Background(), journal.ListOptions{WithFiles: true})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.CommandPush, runs[0].Command)
	assert.Equal(t, "abc", runs[0].Collection)
	assert.Equal(t, "gist", runs[0].Store)
	assert.Equal(t, 4, runs[0].Documents)
	assert.True(t, runs[0].StartedAt.Equal(testutil.ReferenceTime))

	statuses := map[string]string{}
	for _, f := range runs[0].Files {
		statuses[f.RelativePath] = f.Status
	}
	assert.Equal(t, map[string]string{
		"autoexec.cfg":   "ok",
		"binds/keys.cfg": "ok",
		"stale.cfg":      "deleted",
		"video.cfg":      "ok",
	}, statuses)
}

func TestPush_DryRunLeavesRemoteAndJournalUntouched(t *testing.T) {
	journalPath := isolateEnv(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, gameTree)

	store := docstore.NewMemory()
	store.Seed("abc", docstore.Collection{"stale.cfg": "// stale.cfg\nold\n"})
	before := store.Snapshot("abc")

	cmd := NewPushCommand(testRootOptions("json", store))
	output, err := execute(cmd, dir, "autoexec.cfg", "--gist-id", "abc", "-t", "secret", "--dry-run")
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   syncer.PushReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.DryRun)
	assert.Equal(t, 4, resp.Data.Documents)
	assert.Equal(t, []string{"stale.cfg"}, resp.Data.Deleted)

	assert.Equal(t, before, store.Snapshot("abc"))
	assert.Zero(t, store.Commits())
	assert.NoFileExists(t, journalPath)
}

func TestPush_MissingCollectionID(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	testutil.WriteTree(t, dir, gameTree)
	store := docstore.NewMemory()

	cmd := NewPushCommand(testRootOptions("json", store))
	output, err := execute(cmd, dir, "autoexec.cfg", "-t", "secret")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidConfig, resp.Error.Code)
	assert.Zero(t, store.Fetches())
}

func TestPush_TokenFromEnvironment(t *testing.T) {
	isolateEnv(t)
	t.Setenv("GITHUB_TOKEN", "from-env")
	dir := t.TempDir()
	testutil.WriteTree(t, dir, gameTree)
	store := docstore.NewMemory()

	cmd := NewPushCommand(testRootOptions("text", store))
	_, err := execute(cmd, dir, "autoexec.cfg", "--gist-id", "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Commits())
}

func TestPush_Errors(t *testing.T) {
	tests := []struct {
		name       string
		tree       map[string]string
		failFetch  bool
		failCommit bool
		wantCode   string
	}{
		{
			name: "name collision",
			tree: map[string]string{
				"autoexec.cfg": "exec \"a/video\"\nexec \"b/video\"\n",
				"a/video.cfg":  "x\n",
				"b/video.cfg":  "y\n",
			},
			wantCode: ErrCodeNameCollision,
		},
		{
			name:     "missing include",
			tree:     map[string]string{"autoexec.cfg": "exec \"gone\"\n"},
			wantCode: ErrCodeFileNotFound,
		},
		{
			name:      "fetch fails",
			tree:      gameTree,
			failFetch: true,
			wantCode:  ErrCodeRemoteUnavailable,
		},
		{
			name:       "commit fails",
			tree:       gameTree,
			failCommit: true,
			wantCode:   ErrCodeRemoteUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			journalPath := isolateEnv(t)
			dir := t.TempDir()
			testutil.WriteTree(t, dir, tt.tree)

			store := docstore.NewMemory()
			store.FailFetch = tt.failFetch
			store.FailCommit = tt.failCommit

			cmd := NewPushCommand(testRootOptions("json", store))
			output, err := execute(cmd, dir, "autoexec.cfg", "--gist-id", "abc", "-t", "secret")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(output), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Zero(t, store.Commits())
			assert.NoFileExists(t, journalPath)
		})
	}
}
