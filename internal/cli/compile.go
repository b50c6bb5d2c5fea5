package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgsync/internal/compiler"
	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/include"
	"github.com/roach88/cfgsync/internal/ui"
	"github.com/roach88/cfgsync/internal/watch"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	DryRun bool
	Watch  bool
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <cfg_dir> <root_file>",
		Short: "Flatten a config tree into compiled.cfg",
		Long: `Compile the tree rooted at <root_file> into a single document.

Every exec "name" line is replaced, in place, by the compiled text of
name.cfg. The result is written to compiled.cfg next to the root file.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report the output without writing it")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "recompile when a file of the tree changes")

	return cmd
}

func runCompile(opts *CompileOptions, dir, root string, cmd *cobra.Command) error {
	s, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	compileOpts := compiler.Options{
		Dir:    dir,
		Root:   root,
		DryRun: opts.DryRun,
		Now:    opts.now,
	}
	result, err := compiler.Run(s.ctx, compileOpts)
	if err != nil {
		return outputError(s.formatter, err)
	}
	if err := outputCompileSuccess(s.formatter, result); err != nil {
		return err
	}

	if !opts.Watch {
		return nil
	}
	return watchCompile(s, compileOpts, result.OutputPath)
}

// watchCompile recompiles on every change to a file of the tree until the
// command's context is cancelled.
func watchCompile(s *session, opts compiler.Options, outputPath string) error {
	w, err := watch.New(watch.Options{Ignore: []string{outputPath}})
	if err != nil {
		return outputError(s.formatter, err)
	}
	defer w.Close()

	files, err := treeFiles(opts.Dir, opts.Root)
	if err != nil {
		return outputError(s.formatter, err)
	}
	if err := w.Watch(files); err != nil {
		return outputError(s.formatter, err)
	}

	s.formatter.VerboseLog("Watching %d director(ies) for changes", len(w.Dirs()))
	ctxlog.FromContext(s.ctx).Info("watching for changes", "root", opts.Root)

	rebuild := func(ctx context.Context) ([]string, error) {
		result, err := compiler.Run(ctx, opts)
		if err != nil {
			return nil, err
		}
		if err := outputCompileSuccess(s.formatter, result); err != nil {
			return nil, err
		}
		return treeFiles(opts.Dir, opts.Root)
	}
	return w.Run(s.ctx, rebuild)
}

// treeFiles lists the on-disk paths of every file reachable from root.
func treeFiles(dir, root string) ([]string, error) {
	files, err := include.Walk(os.DirFS(dir), filepath.ToSlash(root))
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Join(dir, filepath.FromSlash(f.RelativePath))
	}
	return paths, nil
}

// outputCompileSuccess outputs a successful compilation.
func outputCompileSuccess(formatter *OutputFormatter, result *compiler.Result) error {
	if formatter.Structured() {
		return formatter.Success(result)
	}

	st := formatter.Styles()
	if result.DryRun {
		fmt.Fprintf(formatter.Writer, "%s writing compiled %s to %s\n",
			st.Warning("Skipping"), ui.Bytes(result.Bytes), result.OutputPath)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%s compiled %s to %s\n",
		st.Success("✓"), ui.Bytes(result.Bytes), result.OutputPath)
	return nil
}
