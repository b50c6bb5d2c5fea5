package journal

import (
	"context"
	"fmt"
	"time"
)

// Command names a recorded operation.
type Command string

const (
	CommandPush Command = "push"
	CommandPull Command = "pull"
)

// Run is one recorded sync.
type Run struct {
	Seq        int64     `json:"seq" yaml:"seq"`
	ID         string    `json:"id" yaml:"id"`
	Command    Command   `json:"command" yaml:"command"`
	Collection string    `json:"collection" yaml:"collection"`
	Store      string    `json:"store" yaml:"store"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	Documents  int       `json:"documents" yaml:"documents"`
	Bytes      int       `json:"bytes" yaml:"bytes"`
	Failed     int       `json:"failed" yaml:"failed"`
	Files      []File    `json:"files,omitempty" yaml:"files,omitempty"`
}

// File is one manifest entry of a run.
type File struct {
	RelativePath string `json:"relative_path" yaml:"relative_path"`
	SHA256       string `json:"sha256" yaml:"sha256"`
	Size         int    `json:"size" yaml:"size"`
	Status       string `json:"status" yaml:"status"`
}

// RecordRun stores run and its manifest in one transaction. The id and seq
// are assigned here; the stored run is returned.
func (j *Journal) RecordRun(ctx context.Context, run Run) (Run, error) {
	run.ID = j.ids.Generate()
	run.Files = append([]File(nil), run.Files...)

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, command, collection, store, started_at, documents, bytes, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		string(run.Command),
		run.Collection,
		run.Store,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Documents,
		run.Bytes,
		run.Failed,
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	if run.Seq, err = res.LastInsertId(); err != nil {
		return Run{}, fmt.Errorf("record run: seq: %w", err)
	}

	for i, f := range run.Files {
		if f.Status == "" {
			run.Files[i].Status = "ok"
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_files (run_id, relative_path, sha256, size, status)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(run_id, relative_path) DO NOTHING
		`, run.ID, f.RelativePath, f.SHA256, f.Size, run.Files[i].Status)
		if err != nil {
			return Run{}, fmt.Errorf("record run file %s: %w", f.RelativePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: commit: %w", err)
	}
	return run, nil
}

// ListOptions filters ListRuns.
type ListOptions struct {
	// Collection restricts results to one collection when set.
	Collection string

	// Limit caps the number of runs. Zero means 20.
	Limit int

	// WithFiles loads each run's manifest.
	WithFiles bool
}

// ListRuns returns recorded runs, newest first.
func (j *Journal) ListRuns(ctx context.Context, opts ListOptions) ([]Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT seq, id, command, collection, store, started_at, documents, bytes, failed
		FROM runs`
	args := []any{}
	if opts.Collection != "" {
		query += ` WHERE collection = ?`
		args = append(args, opts.Collection)
	}
	query += ` ORDER BY seq DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r         Run
			command   string
			startedAt string
		)
		if err := rows.Scan(&r.Seq, &r.ID, &command, &r.Collection, &r.Store, &startedAt, &r.Documents, &r.Bytes, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Command = Command(command)
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at of run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if opts.WithFiles {
		for i := range runs {
			files, err := j.RunFiles(ctx, runs[i].ID)
			if err != nil {
				return nil, err
			}
			runs[i].Files = files
		}
	}
	return runs, nil
}

// RunFiles returns the manifest of a run ordered by relative path.
func (j *Journal) RunFiles(ctx context.Context, runID string) ([]File, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT relative_path, sha256, size, status
		FROM run_files
		WHERE run_id = ?
		ORDER BY relative_path COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	files := []File{}
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.RelativePath, &f.SHA256, &f.Size, &f.Status); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run files: %w", err)
	}
	return files, nil
}
