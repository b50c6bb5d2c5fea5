// Package include enumerates a tree of config files linked by include lines.
//
// An include line begins with `exec "<name>"` and references the file
// `<name>.cfg`, resolved relative to the tree root (not to the including
// file). All other lines are inert.
//
// Walk visits the tree depth-first in preorder: a file is emitted first,
// then, for each include line scanned top to bottom, the complete subtree of
// the referenced child. Resolution threads the set of ancestor paths through
// every call, so a child that includes one of its ancestors fails with a
// CYCLIC_INCLUDE error instead of recursing without bound.
package include

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"

	"github.com/roach88/cfgsync/internal/cfgerr"
)

// Extension is appended to an include name to form the child's file name.
const Extension = ".cfg"

// execPattern matches include lines. It is compiled once and shared.
var execPattern = regexp.MustCompile(`^exec "([^"]+)"`)

// File is one physical config file of the tree.
type File struct {
	// RelativePath is the slash-separated path from the tree root.
	RelativePath string

	// Contents is the raw file content.
	Contents []byte
}

// Name returns the base name of the file, which keys it remotely.
func (f File) Name() string {
	return path.Base(f.RelativePath)
}

// ParseLine reports whether line is an include line and returns the
// referenced name.
func ParseLine(line string) (string, bool) {
	m := execPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Lines splits data into lines on "\n". A carriage return stays part of its
// line. A single trailing terminator does not produce an empty last line.
func Lines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.Split(text, "\n")
}

// ChildPath returns the tree-relative path of the file referenced by an
// include name.
func ChildPath(name string) string {
	return path.Clean(name + Extension)
}

// Ancestors tracks the include chain from the root to the file being
// resolved. The zero value is an empty chain.
type Ancestors struct {
	chain []string
	set   map[string]bool
}

// Enter pushes p onto the chain. It fails with CYCLIC_INCLUDE if p is
// already an ancestor.
func (a *Ancestors) Enter(p string) error {
	if a.set == nil {
		a.set = make(map[string]bool)
	}
	if a.set[p] {
		chain := append(append([]string{}, a.chain...), p)
		return cfgerr.CyclicInclude(chain)
	}
	a.set[p] = true
	a.chain = append(a.chain, p)
	return nil
}

// Leave pops the innermost entry.
func (a *Ancestors) Leave() {
	n := len(a.chain)
	if n == 0 {
		return
	}
	delete(a.set, a.chain[n-1])
	a.chain = a.chain[:n-1]
}

// Depth returns the current chain length.
func (a *Ancestors) Depth() int {
	return len(a.chain)
}

// ReadFile reads p from fsys, mapping a missing or out-of-tree path to
// FILE_NOT_FOUND.
func ReadFile(fsys fs.FS, p string) ([]byte, error) {
	if !fs.ValidPath(p) {
		return nil, cfgerr.FileNotFound(p, fmt.Errorf("path escapes the config directory"))
	}
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, cfgerr.FileNotFound(p, err)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}
