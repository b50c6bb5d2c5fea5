package docstore

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/cfgsync/internal/cfgerr"
)

// ErrInjected is the cause reported by Memory when a failure is injected.
var ErrInjected = errors.New("injected failure")

// Memory is an in-process Store. It backs tests and dry experiments.
// It is safe for concurrent use.
type Memory struct {
	mu          sync.Mutex
	collections map[string]Collection
	commits     int
	fetches     int

	// FailFetch and FailCommit make the respective call fail with
	// REMOTE_UNAVAILABLE.
	FailFetch  bool
	FailCommit bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]Collection)}
}

// Seed replaces a collection's contents.
func (m *Memory) Seed(collectionID string, docs Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := make(Collection, len(docs))
	for name, content := range docs {
		c[name] = content
	}
	m.collections[collectionID] = c
}

// Snapshot returns a copy of a collection's current contents.
func (m *Memory) Snapshot(collectionID string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Collection, len(m.collections[collectionID]))
	for name, content := range m.collections[collectionID] {
		out[name] = content
	}
	return out
}

// Commits returns the number of successful commits.
func (m *Memory) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// Fetches returns the number of fetch calls, failed ones included.
func (m *Memory) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// Fetch implements Store.
func (m *Memory) Fetch(ctx context.Context, collectionID string) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, cfgerr.RemoteUnavailable(collectionID, "fetch", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.FailFetch {
		return nil, cfgerr.RemoteUnavailable(collectionID, "fetch", ErrInjected)
	}
	out := make(Collection, len(m.collections[collectionID]))
	for name, content := range m.collections[collectionID] {
		out[name] = content
	}
	return out, nil
}

// Commit implements Store.
func (m *Memory) Commit(ctx context.Context, batch *Batch) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, cfgerr.RemoteUnavailable(batch.CollectionID, "commit", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCommit {
		return CommitResult{}, cfgerr.RemoteUnavailable(batch.CollectionID, "commit", ErrInjected)
	}

	next := batch.Apply(m.collections[batch.CollectionID])
	m.collections[batch.CollectionID] = next
	m.commits++

	result := CommitResult{
		URL:       "memory://" + batch.CollectionID,
		Documents: make(map[string]DocumentInfo, len(next)),
	}
	for name, content := range next {
		result.Documents[name] = DocumentInfo{Size: len(content), URL: result.URL + "/" + name}
	}
	return result, nil
}
