package syncer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/docstore"
	"github.com/roach88/cfgsync/internal/include"
)

// FileEntry describes one local file in a sync run.
type FileEntry struct {
	RelativePath string `json:"relative_path" yaml:"relative_path"`
	Name         string `json:"name" yaml:"name"`
	Bytes        int    `json:"bytes" yaml:"bytes"`
	SHA256       string `json:"sha256" yaml:"sha256"`
}

// Plan is the reconciliation of a local tree against a remote collection.
//
// Desired holds every document that must exist after the commit, README
// first, then data documents in walk order. Deletes holds the remote names
// that are not desired, sorted.
type Plan struct {
	Desired []docstore.Document
	Deletes []string
	Files   []FileEntry
}

// BuildPlan computes the desired document set from walked files.
//
// A file reached more than once through different parents is planned once.
// Two distinct relative paths that share a basename, or a data file named
// like the summary document, fail with NAME_COLLISION.
func BuildPlan(files []include.File, timestamp string) (*Plan, error) {
	p := &Plan{
		Desired: []docstore.Document{{Name: docstore.ReadmeName, Content: ReadmeContent(timestamp)}},
	}

	owners := map[string]string{docstore.ReadmeName: docstore.ReadmeName}
	for _, f := range files {
		name := f.Name()
		if owner, ok := owners[name]; ok {
			if owner == f.RelativePath {
				continue
			}
			return nil, cfgerr.NameCollision(name, owner, f.RelativePath)
		}
		owners[name] = f.RelativePath

		p.Desired = append(p.Desired, docstore.Document{
			Name:    name,
			Content: EncodeDocument(f.RelativePath, f.Contents),
		})
		p.Files = append(p.Files, FileEntry{
			RelativePath: f.RelativePath,
			Name:         name,
			Bytes:        len(f.Contents),
			SHA256:       digest(f.Contents),
		})
	}
	return p, nil
}

// Reconcile schedules deletion of every remote document that is not desired.
func (p *Plan) Reconcile(remote docstore.Collection) {
	desired := make(map[string]bool, len(p.Desired))
	for _, d := range p.Desired {
		desired[d.Name] = true
	}
	p.Deletes = p.Deletes[:0]
	for name := range remote {
		if !desired[name] {
			p.Deletes = append(p.Deletes, name)
		}
	}
	sort.Strings(p.Deletes)
}

// Batch stages the plan: deletes, then upserts in desired order.
func (p *Plan) Batch(collectionID string) *docstore.Batch {
	b := docstore.NewBatch(collectionID)
	for _, name := range p.Deletes {
		b.Delete(name)
	}
	for _, d := range p.Desired {
		b.Upsert(d.Name, d.Content)
	}
	return b
}

// Size is the total byte size of the desired documents.
func (p *Plan) Size() int {
	total := 0
	for _, d := range p.Desired {
		total += len(d.Content)
	}
	return total
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
