package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgsync/internal/syncer"
	"github.com/roach88/cfgsync/internal/ui"
)

// PullOptions holds flags for the pull command.
type PullOptions struct {
	*RootOptions
	UpdateOnly bool
	DryRun     bool
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PullOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pull <cfg_dir>",
		Short: "Restore a config tree from the remote collection",
		Long: `Write every remote document to the path named by its header line,
relative to <cfg_dir>. Documents are handled independently: one failure
does not stop the others, and the command exits 1 if any failed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(opts, args[0], cmd)
		},
	}

	cmd.Flags().String("gist-id", "", "remote collection id")
	cmd.Flags().StringP("access-token", "t", "", "GitHub access token (or CFGSYNC_ACCESS_TOKEN, GITHUB_TOKEN)")
	cmd.Flags().BoolVarP(&opts.UpdateOnly, "update-only", "u", false, "only overwrite files that already exist")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report the writes without performing them")
	cmd.Flags().Int("workers", 0, "concurrent document writes (0 = GOMAXPROCS)")

	return cmd
}

func runPull(opts *PullOptions, dir string, cmd *cobra.Command) error {
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
	puller := &syncer.Puller{Store: store}
	report, err := puller.Pull(s.ctx, syncer.PullOptions{
		Dir:          dir,
		CollectionID: s.cfg.GistID,
		UpdateOnly:   opts.UpdateOnly,
		DryRun:       opts.DryRun,
		Workers:      s.cfg.Workers,
	})
	if report == nil {
		return outputError(s.formatter, err)
	}

	if !report.DryRun {
		s.record(pullRun(s.cfg.Store, started, report))
	}

	if err != nil {
		return outputPullFailure(s.formatter, report, err)
	}
	return outputPullSuccess(s.formatter, report)
}

// outputPullSuccess outputs a pull report in which every document succeeded.
func outputPullSuccess(formatter *OutputFormatter, report *syncer.PullReport) error {
	if formatter.Structured() {
		return formatter.Success(report)
	}
	writePullText(formatter, report)
	return nil
}

// outputPullFailure outputs a pull report with failed documents. The
// remaining documents were still written, so this is exit code 1.
func outputPullFailure(formatter *OutputFormatter, report *syncer.PullReport, err error) error {
	code := MapErrorCode(err)
	message := fmt.Sprintf("%d of %d document(s) failed", report.Failed, len(report.Results))
	if formatter.Structured() {
		if encErr := formatter.PartialFailure(code, message, report); encErr != nil {
			return encErr
		}
	} else {
		writePullText(formatter, report)
		_ = formatter.Error(code, message, nil)
	}
	return WrapExitError(ExitFailure, message, err)
}

func writePullText(formatter *OutputFormatter, report *syncer.PullReport) {
	st := formatter.Styles()
	w := formatter.Writer

	for _, r := range report.Results {
		switch r.Status {
		case syncer.StatusWritten:
			fmt.Fprintf(w, "%s %s (%s)\n", st.Success("✓"), r.RelativePath, ui.Bytes(r.Bytes))
		case syncer.StatusWouldWrite:
			fmt.Fprintf(w, "%s %s (%s)\n", st.Warning("~"), r.RelativePath, ui.Bytes(r.Bytes))
		default:
			label := r.Name
			if r.RelativePath != "" {
				label = r.RelativePath
			}
			fmt.Fprintf(w, "%s %s: %s\n", st.Failure("✗"), label, r.Error)
		}
	}

	written := len(report.Results) - report.Failed
	if report.DryRun {
		fmt.Fprintf(w, "\n%s would write %d document(s), %s\n", st.Warning("Dry run:"), written, ui.Bytes(report.Bytes))
	} else {
		fmt.Fprintf(w, "\nPulled %d document(s), %s\n", written, ui.Bytes(report.Bytes))
	}
	fmt.Fprintln(w, st.Field("collection", report.Collection))
}
