package syncer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/docstore"
)

// Status is the outcome of one pulled document.
type Status string

const (
	StatusWritten    Status = "written"
	StatusWouldWrite Status = "would-write"
	StatusFailed     Status = "failed"
)

// PullOptions configures Pull.
type PullOptions struct {
	Dir          string
	CollectionID string

	// UpdateOnly restricts writes to files that already exist.
	UpdateOnly bool

	DryRun bool

	// Workers bounds concurrent document writes. Zero means GOMAXPROCS.
	Workers int
}

// DocumentResult is the outcome for one remote document.
type DocumentResult struct {
	Name         string `json:"name" yaml:"name"`
	RelativePath string `json:"relative_path,omitempty" yaml:"relative_path,omitempty"`
	Path         string `json:"path,omitempty" yaml:"path,omitempty"`
	Bytes        int    `json:"bytes" yaml:"bytes"`
	SHA256       string `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	Status       Status `json:"status" yaml:"status"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`

	err error
}

// Err returns the failure of this document, if any.
func (r DocumentResult) Err() error {
	return r.err
}

// PullReport summarizes a pull.
type PullReport struct {
	Collection string           `json:"collection" yaml:"collection"`
	Results    []DocumentResult `json:"results" yaml:"results"`
	Bytes      int              `json:"bytes" yaml:"bytes"`
	Failed     int              `json:"failed" yaml:"failed"`
	DryRun     bool             `json:"dry_run" yaml:"dry_run"`
}

// Puller reconstructs a local tree from a remote collection.
type Puller struct {
	Store docstore.Store
}

// Pull fetches the collection and writes each data document to its header
// path under opts.Dir.
//
// Documents are handled independently and concurrently. A failing document
// does not stop the others; after all of them finish, the report lists every
// outcome and the returned error joins the per-document failures. Documents
// whose headers name the same path all fail with NAME_COLLISION and none of
// them is written. A fetch failure aborts before anything is written and
// returns a nil report.
func (p *Puller) Pull(ctx context.Context, opts PullOptions) (*PullReport, error) {
	logger := ctxlog.FromContext(ctx).With("collection", opts.CollectionID)

	remote, err := p.Store.Fetch(ctx, opts.CollectionID)
	if err != nil {
		return nil, remoteErr(opts.CollectionID, "fetch", err)
	}

	var docs []docstore.Document
	for _, d := range remote.Documents() {
		if d.Name == docstore.ReadmeName {
			continue
		}
		docs = append(docs, d)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	// Headers are parsed up front so that no two tasks ever write one path.
	results := make([]DocumentResult, len(docs))
	bodies := make([]string, len(docs))
	for i, d := range docs {
		results[i], bodies[i] = parseResult(opts, d)
	}
	rejectSharedPaths(results)

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range docs {
		if results[i].err != nil {
			continue
		}
		g.Go(func() error {
			results[i] = pullDocument(ctx, opts, results[i], bodies[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &PullReport{Collection: opts.CollectionID, Results: results, DryRun: opts.DryRun}
	var errs []error
	for _, r := range results {
		if r.err != nil {
			report.Failed++
			errs = append(errs, r.err)
			logger.Warn("document failed", "name", r.Name, "error", r.err)
			continue
		}
		report.Bytes += r.Bytes
	}
	logger.Info("pulled", "documents", len(results), "failed", report.Failed, "bytes", report.Bytes, "dry_run", opts.DryRun)
	return report, errors.Join(errs...)
}

func (r DocumentResult) fail(err error) DocumentResult {
	r.Status = StatusFailed
	r.Error = err.Error()
	r.err = err
	return r
}

// parseResult decodes d's header and returns its result skeleton and body.
func parseResult(opts PullOptions, d docstore.Document) (DocumentResult, string) {
	res := DocumentResult{Name: d.Name}
	rel, body, err := ParseDocument(d.Name, d.Content)
	if err != nil {
		return res.fail(err), ""
	}
	res.RelativePath = rel
	res.Path = filepath.Join(opts.Dir, filepath.FromSlash(rel))
	res.Bytes = len(body)
	res.SHA256 = digest([]byte(body))
	return res, body
}

// rejectSharedPaths fails every document whose header path is claimed by
// another document. None of them is written.
func rejectSharedPaths(results []DocumentResult) {
	claims := make(map[string][]int)
	for i, r := range results {
		if r.err == nil {
			claims[r.RelativePath] = append(claims[r.RelativePath], i)
		}
	}
	for rel, idx := range claims {
		if len(idx) < 2 {
			continue
		}
		names := make([]string, len(idx))
		for j, i := range idx {
			names[j] = results[i].Name
		}
		for _, i := range idx {
			results[i] = results[i].fail(cfgerr.PathCollision(rel, names))
		}
	}
}

func pullDocument(ctx context.Context, opts PullOptions, res DocumentResult, body string) DocumentResult {
	logger := ctxlog.FromContext(ctx)
	rel := res.RelativePath

	if opts.UpdateOnly {
		if _, err := os.Stat(res.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return res.fail(cfgerr.FileNotFound(rel, err))
			}
			return res.fail(cfgerr.WriteFailure(rel, err))
		}
	}

	if opts.DryRun {
		res.Status = StatusWouldWrite
		logger.Info("skipping writing due to --dry-run", "bytes", res.Bytes, "path", res.Path)
		return res
	}

	if !opts.UpdateOnly {
		if err := os.MkdirAll(filepath.Dir(res.Path), 0o755); err != nil {
			return res.fail(cfgerr.WriteFailure(rel, err))
		}
	}
	if err := os.WriteFile(res.Path, []byte(body), 0o644); err != nil {
		return res.fail(cfgerr.WriteFailure(rel, err))
	}
	res.Status = StatusWritten
	logger.Debug("wrote", "bytes", res.Bytes, "path", res.Path)
	return res
}
