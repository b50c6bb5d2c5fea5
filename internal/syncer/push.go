// Package syncer synchronizes a config tree with a remote document store.
//
// Push walks the tree from its root file, plans the desired document set
// (one document per file, keyed by basename, plus a README summary), diffs
// it against the remote collection and applies the result as a single
// commit. Pull fetches the collection and writes every data document back
// to the path recorded in its header line.
package syncer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/compiler"
	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/docstore"
	"github.com/roach88/cfgsync/internal/include"
)

// PushOptions configures Push.
type PushOptions struct {
	Dir          string
	Root         string
	CollectionID string
	DryRun       bool
}

// PushReport summarizes a push.
type PushReport struct {
	Collection string      `json:"collection" yaml:"collection"`
	URL        string      `json:"url,omitempty" yaml:"url,omitempty"`
	Documents  int         `json:"documents" yaml:"documents"`
	Bytes      int         `json:"bytes" yaml:"bytes"`
	Deleted    []string    `json:"deleted" yaml:"deleted"`
	Files      []FileEntry `json:"files" yaml:"files"`
	DryRun     bool        `json:"dry_run" yaml:"dry_run"`
}

// Pusher uploads a local tree.
type Pusher struct {
	Store docstore.Store

	// Now supplies the README timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Push reconciles the remote collection with the tree rooted at opts.Root.
// All local work (walk, collision check) completes before the store is
// contacted. A dry run fetches but never commits.
func (p *Pusher) Push(ctx context.Context, opts PushOptions) (*PushReport, error) {
	logger := ctxlog.FromContext(ctx).With("collection", opts.CollectionID)
	now := p.Now
	if now == nil {
		now = time.Now
	}

	files, err := include.Walk(os.DirFS(opts.Dir), filepath.ToSlash(opts.Root))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		logger.Debug("walked", "path", f.RelativePath, "bytes", len(f.Contents))
	}

	plan, err := BuildPlan(files, now().Format(compiler.TimestampLayout))
	if err != nil {
		return nil, err
	}

	remote, err := p.Store.Fetch(ctx, opts.CollectionID)
	if err != nil {
		return nil, remoteErr(opts.CollectionID, "fetch", err)
	}
	plan.Reconcile(remote)

	report := &PushReport{
		Collection: opts.CollectionID,
		Deleted:    plan.Deletes,
		Files:      plan.Files,
		DryRun:     opts.DryRun,
	}

	if opts.DryRun {
		report.Documents = len(plan.Desired)
		report.Bytes = plan.Size()
		logger.Info("skipping push due to --dry-run", "documents", report.Documents, "bytes", report.Bytes, "deletes", len(plan.Deletes))
		return report, nil
	}

	result, err := p.Store.Commit(ctx, plan.Batch(opts.CollectionID))
	if err != nil {
		return nil, remoteErr(opts.CollectionID, "commit", err)
	}
	report.URL = result.URL
	report.Documents = len(result.Documents)
	report.Bytes = result.TotalSize()
	logger.Info("pushed", "documents", report.Documents, "bytes", report.Bytes, "url", report.URL)
	return report, nil
}

// remoteErr guarantees store failures surface as REMOTE_UNAVAILABLE.
func remoteErr(collectionID, op string, err error) error {
	if cfgerr.CodeOf(err) != "" {
		return err
	}
	return cfgerr.RemoteUnavailable(collectionID, op, err)
}
