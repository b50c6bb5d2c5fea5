// Package compiler flattens a tree of config files into one document.
//
// Compilation follows the same traversal as include.Walk but substitutes
// instead of enumerating: each include line is replaced, in place, by the
// compiled text of the referenced file. Non-include lines are kept verbatim.
// The result is prefixed with a generation header:
//
//	// Compiled on 2024-01-02 15:04:05
//
//	<resolved text>
//
// Compilation is all-or-nothing. A missing file or an include cycle fails
// before anything is written.
package compiler

import (
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/roach88/cfgsync/internal/include"
)

// OutputName is the file name of the compiled document, written next to the
// root file.
const OutputName = "compiled.cfg"

// TimestampLayout formats generation timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Compile resolves the tree rooted at root into one text.
//
// The compiled text of a file is its lines joined with "\n", each include
// line replaced by the compiled text of its child. A trailing newline on the
// root file is preserved, so a file without include lines compiles to its
// exact content.
func Compile(fsys fs.FS, root string) (string, error) {
	root = path.Clean(root)

	var ancestors include.Ancestors
	resolved, data, err := compileFile(fsys, root, &ancestors)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(string(data), "\n") {
		resolved += "\n"
	}
	return resolved, nil
}

func compileFile(fsys fs.FS, p string, ancestors *include.Ancestors) (string, []byte, error) {
	if err := ancestors.Enter(p); err != nil {
		return "", nil, err
	}
	defer ancestors.Leave()

	data, err := include.ReadFile(fsys, p)
	if err != nil {
		return "", nil, err
	}

	lines := include.Lines(data)
	out := make([]string, len(lines))
	for i, line := range lines {
		name, ok := include.ParseLine(line)
		if !ok {
			out[i] = line
			continue
		}
		child, _, err := compileFile(fsys, include.ChildPath(name), ancestors)
		if err != nil {
			return "", nil, err
		}
		out[i] = child
	}
	return strings.Join(out, "\n"), data, nil
}

// Header returns the generation header line for ts, without line breaks.
func Header(ts time.Time) string {
	return "// Compiled on " + ts.Format(TimestampLayout)
}

// Render prefixes resolved text with the generation header and a blank line.
func Render(resolved string, ts time.Time) string {
	return Header(ts) + "\n\n" + resolved
}

// OutputPath returns the tree-relative path of the compiled document for
// root: compiled.cfg in the root file's directory.
func OutputPath(root string) string {
	return path.Join(path.Dir(path.Clean(root)), OutputName)
}
