package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgsync/internal/journal"
	"github.com/roach88/cfgsync/internal/ui"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit      int
	Files      bool
	Collection string
}

// HistoryResult is the structured output of the history command.
type HistoryResult struct {
	Journal string        `json:"journal" yaml:"journal"`
	Runs    []journal.Run `json:"runs" yaml:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recorded push and pull runs",
		Long:          `List the runs recorded in the sync journal, newest first.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs")
	cmd.Flags().BoolVar(&opts.Files, "files", false, "include each run's file manifest")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "only runs against this collection")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	s, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.Journal == "" {
		_ = s.formatter.Error(ErrCodeJournal, "the sync journal is disabled", nil)
		return NewExitError(ExitCommandError, "journal disabled")
	}

	j, err := journal.Open(s.cfg.Journal)
	if err != nil {
		_ = s.formatter.Error(ErrCodeJournal, err.Error(), map[string]string{"path": s.cfg.Journal})
		return WrapExitError(ExitCommandError, ErrCodeJournal, err)
	}
	defer j.Close()

	runs, err := j.ListRuns(s.ctx, journal.ListOptions{
		Collection: opts.Collection,
		Limit:      opts.Limit,
		WithFiles:  opts.Files,
	})
	if err != nil {
		_ = s.formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeJournal, err)
	}

	return outputHistory(s.formatter, HistoryResult{Journal: s.cfg.Journal, Runs: runs})
}

// outputHistory outputs recorded runs.
func outputHistory(formatter *OutputFormatter, result HistoryResult) error {
	if formatter.Structured() {
		if result.Runs == nil {
			result.Runs = []journal.Run{}
		}
		return formatter.Success(result)
	}

	st := formatter.Styles()
	w := formatter.Writer
	if len(result.Runs) == 0 {
		fmt.Fprintln(w, st.Muted("No runs recorded."))
		return nil
	}

	for _, run := range result.Runs {
		status := st.Success("ok")
		if run.Failed > 0 {
			status = st.Failure(fmt.Sprintf("%d failed", run.Failed))
		}
		fmt.Fprintf(w, "%s  %-4s %s  %d document(s), %s  %s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.Command,
			run.Collection,
			run.Documents,
			ui.Bytes(run.Bytes),
			status)
		for _, f := range run.Files {
			fmt.Fprintf(w, "    %s %s\n", f.RelativePath, st.Muted(f.Status))
		}
	}
	return nil
}
