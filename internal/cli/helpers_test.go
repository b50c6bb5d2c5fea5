package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgsync/internal/config"
	"github.com/roach88/cfgsync/internal/docstore"
	"github.com/roach88/cfgsync/internal/testutil"
)

// isolateEnv keeps the developer's configuration out of a test and points
// the journal at a temporary database, whose path it returns.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range []string{"GITHUB_TOKEN", "CFGSYNC_GIST_ID", "CFGSYNC_ACCESS_TOKEN", "CFGSYNC_STORE", "CFGSYNC_WORKERS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CFGSYNC_LOG_LEVEL", "error")
	journalPath := filepath.Join(t.TempDir(), "journal.db")
	t.Setenv("CFGSYNC_JOURNAL", journalPath)
	return journalPath
}

// testRootOptions wires store into every command and freezes the clock.
func testRootOptions(format string, store docstore.Store) *RootOptions {
	clock := testutil.NewFixedClock(testutil.ReferenceTime)
	return &RootOptions{
		Format: format,
		Now:    clock.Now,
		StoreFactory: func(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
			return store, nil
		},
	}
}

// execute runs cmd with args and returns its standard output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// gameTree is the autoexec/video example used across command tests.
var gameTree = map[string]string{
	"autoexec.cfg":    "exec \"video\"\nexec \"binds/keys\"\nfps_max 240\n",
	"video.cfg":       "mat_vsync 0\n",
	"binds/keys.cfg":  "bind w +forward\n",
	"unrelated.cfg":   "not part of the tree\n",
	"notes/readme.md": "ignored\n",
}
