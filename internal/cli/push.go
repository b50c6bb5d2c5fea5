package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgsync/internal/syncer"
	"github.com/roach88/cfgsync/internal/ui"
)

// PushOptions holds flags for the push command.
type PushOptions struct {
	*RootOptions
	DryRun bool
}

// NewPushCommand creates the push command.
func NewPushCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PushOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "push <cfg_dir> <root_file>",
		Short: "Upload a config tree to the remote collection",
		Long: `Upload every file reachable from <root_file> as one document named by
its basename, prefixed with a "// <relative path>" header line, plus a
README.md summary. Remote documents no longer in the tree are deleted.
All changes are sent as a single commit.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().String("gist-id", "", "remote collection id")
	cmd.Flags().StringP("access-token", "t", "", "GitHub access token (or CFGSYNC_ACCESS_TOKEN, GITHUB_TOKEN)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report the changes without committing them")

	return cmd
}

func runPush(opts *PushOptions, dir, root string, cmd *cobra.Command) error {
	s, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.cfg.RequireRemote(); err != nil {
		return outputError(s.formatter, err)
	}
	store, err := opts.newStore(s.ctx, s.cfg)
	if err != nil {
		return outputError(s.formatter, err)
	}

	started := opts.now()
	pusher := &syncer.Pusher{Store: store, Now: opts.now}
	report, err := pusher.Push(s.ctx, syncer.PushOptions{
		Dir:          dir,
		Root:         root,
		CollectionID: s.cfg.GistID,
		DryRun:       opts.DryRun,
	})
	if err != nil {
		return outputError(s.formatter, err)
	}

	for _, f := range report.Files {
		s.formatter.VerboseLog("%s -> %s (%s)", f.RelativePath, f.Name, ui.Bytes(f.Bytes))
	}
	if !report.DryRun {
		s.record(pushRun(s.cfg.Store, started, report))
	}
	return outputPushSuccess(s.formatter, report)
}

// outputPushSuccess outputs a push report.
func outputPushSuccess(formatter *OutputFormatter, report *syncer.PushReport) error {
	if formatter.Structured() {
		return formatter.Success(report)
	}

	st := formatter.Styles()
	w := formatter.Writer
	if report.DryRun {
		fmt.Fprintf(w, "%s would push %d document(s), %s\n",
			st.Warning("Dry run:"), report.Documents, ui.Bytes(report.Bytes))
	} else {
		fmt.Fprintf(w, "%s Pushed %d document(s), %s\n",
			st.Success("✓"), report.Documents, ui.Bytes(report.Bytes))
	}
	fmt.Fprintln(w, st.Field("collection", report.Collection))
	if report.URL != "" {
		fmt.Fprintln(w, st.Field("url", report.URL))
	}
	fmt.Fprintln(w, st.Field("deleted", len(report.Deleted)))
	if len(report.Deleted) > 0 {
		fmt.Fprintln(w, st.List(report.Deleted))
	}
	return nil
}
