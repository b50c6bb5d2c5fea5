package compiler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/ctxlog"
)

// Options configures Run.
type Options struct {
	// Dir is the config tree root on disk.
	Dir string

	// Root is the tree-relative path of the root file (e.g. "autoexec.cfg").
	Root string

	// DryRun reports the would-be output without writing it.
	DryRun bool

	// Now supplies the generation timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Result describes a compilation.
type Result struct {
	Root       string `json:"root" yaml:"root"`
	OutputPath string `json:"output_path" yaml:"output_path"`
	Bytes      int    `json:"bytes" yaml:"bytes"`
	DryRun     bool   `json:"dry_run" yaml:"dry_run"`
	Content    string `json:"-" yaml:"-"`
}

// Run compiles opts.Root and writes the document to compiled.cfg next to
// it, unless DryRun is set.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logger.Debug("compiling", "dir", opts.Dir, "root", opts.Root)
	resolved, err := Compile(os.DirFS(opts.Dir), filepath.ToSlash(opts.Root))
	if err != nil {
		return nil, err
	}

	doc := Render(resolved, now())
	result := &Result{
		Root:       opts.Root,
		OutputPath: filepath.Join(opts.Dir, filepath.FromSlash(OutputPath(filepath.ToSlash(opts.Root)))),
		Bytes:      len(doc),
		DryRun:     opts.DryRun,
		Content:    doc,
	}

	if opts.DryRun {
		logger.Info("skipping writing compiled output due to --dry-run", "bytes", result.Bytes, "path", result.OutputPath)
		return result, nil
	}

	if err := os.WriteFile(result.OutputPath, []byte(doc), 0o644); err != nil {
		return nil, cfgerr.WriteFailure(result.OutputPath, err)
	}
	logger.Info("compiled", "bytes", result.Bytes, "path", result.OutputPath)
	return result, nil
}
