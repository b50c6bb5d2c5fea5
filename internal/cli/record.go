package cli

import (
	"time"

	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/journal"
	"github.com/roach88/cfgsync/internal/syncer"
)

// record stores run in the journal. The sync has already taken effect, so
// a journal failure is only logged.
func (s *session) record(run journal.Run) {
	logger := ctxlog.FromContext(s.ctx)
	if s.cfg.Journal == "" {
		logger.Debug("journal disabled, not recording run")
		return
	}

	j, err := journal.Open(s.cfg.Journal)
	if err != nil {
		logger.Warn("journal unavailable, run not recorded", "path", s.cfg.Journal, "error", err)
		return
	}
	defer j.Close()

	stored, err := j.RecordRun(s.ctx, run)
	if err != nil {
		logger.Warn("recording run failed", "error", err)
		return
	}
	logger.Debug("recorded run", "id", stored.ID, "command", stored.Command, "files", len(stored.Files))
}

func pushRun(store string, started time.Time, r *syncer.PushReport) journal.Run {
	run := journal.Run{
		Command:    journal.CommandPush,
		Collection: r.Collection,
		Store:      store,
		StartedAt:  started,
		Documents:  r.Documents,
		Bytes:      r.Bytes,
	}
	seen := make(map[string]bool)
	for _, f := range r.Files {
		seen[f.RelativePath] = true
		run.Files = append(run.Files, journal.File{
			RelativePath: f.RelativePath,
			SHA256:       f.SHA256,
			Size:         f.Bytes,
			Status:       "ok",
		})
	}
	for _, name := range r.Deleted {
		if seen[name] {
			continue
		}
		run.Files = append(run.Files, journal.File{RelativePath: name, Status: "deleted"})
	}
	return run
}

func pullRun(store string, started time.Time, r *syncer.PullReport) journal.Run {
	run := journal.Run{
		Command:    journal.CommandPull,
		Collection: r.Collection,
		Store:      store,
		StartedAt:  started,
		Bytes:      r.Bytes,
		Failed:     r.Failed,
	}
	// Two documents may claim the same path; the manifest keeps the first.
	seen := make(map[string]bool)
	for _, res := range r.Results {
		if res.Status == syncer.StatusWritten {
			run.Documents++
		}
		key := res.RelativePath
		if key == "" {
			key = res.Name
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		run.Files = append(run.Files, journal.File{
			RelativePath: key,
			SHA256:       res.SHA256,
			Size:         res.Bytes,
			Status:       string(res.Status),
		})
	}
	return run
}
