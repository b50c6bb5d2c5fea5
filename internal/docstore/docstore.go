// Package docstore defines the remote key-document store that the sync
// engine reconciles against.
//
// A store holds collections. A collection is addressed by one identifier
// (a gist id, an object-key prefix) and maps document names to text
// content. Names are flat: there is no directory structure remotely.
//
// Mutations are staged in a Batch and applied with a single Commit.
package docstore

import (
	"context"
	"sort"
)

// ReadmeName is the reserved summary document of every collection. It is
// written on push and ignored on pull.
const ReadmeName = "README.md"

// Document is one named text document of a collection.
type Document struct {
	Name    string
	Content string
}

// Collection maps document names to their content.
type Collection map[string]string

// Names returns the document names in lexical order.
func (c Collection) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Documents returns the collection as documents ordered by name.
func (c Collection) Documents() []Document {
	docs := make([]Document, 0, len(c))
	for _, name := range c.Names() {
		docs = append(docs, Document{Name: name, Content: c[name]})
	}
	return docs
}

// DocumentInfo describes a stored document after a commit.
type DocumentInfo struct {
	Size int    `json:"size" yaml:"size"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// CommitResult is the state of a collection after a commit.
type CommitResult struct {
	// URL locates the collection for humans (a gist page, a bucket prefix).
	URL string

	// Documents maps every document remaining in the collection to its info.
	Documents map[string]DocumentInfo
}

// TotalSize sums the sizes of all documents.
func (r CommitResult) TotalSize() int {
	total := 0
	for _, info := range r.Documents {
		total += info.Size
	}
	return total
}

// Store is the document store capability.
type Store interface {
	// Fetch returns every document of the collection.
	Fetch(ctx context.Context, collectionID string) (Collection, error)

	// Commit applies the batch as one update and returns the resulting
	// collection state.
	Commit(ctx context.Context, batch *Batch) (CommitResult, error)
}
