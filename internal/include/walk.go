package include

import (
	"io/fs"
	"path"
)

// Walk enumerates the tree rooted at start into an ordered list of files.
//
// The order is depth-first preorder. A file reached through two different
// parents is emitted at each occurrence. The walk is all-or-nothing: a
// missing file or an include cycle aborts it and no partial result is
// returned.
func Walk(fsys fs.FS, start string) ([]File, error) {
	var (
		files     []File
		ancestors Ancestors
	)
	if err := walk(fsys, path.Clean(start), &ancestors, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func walk(fsys fs.FS, p string, ancestors *Ancestors, files *[]File) error {
	if err := ancestors.Enter(p); err != nil {
		return err
	}
	defer ancestors.Leave()

	data, err := ReadFile(fsys, p)
	if err != nil {
		return err
	}
	*files = append(*files, File{RelativePath: p, Contents: data})

	for _, name := range includes(data) {
		if err := walk(fsys, ChildPath(name), ancestors, files); err != nil {
			return err
		}
	}
	return nil
}

// includes returns the include names found in data, top to bottom.
func includes(data []byte) []string {
	var names []string
	for _, line := range Lines(data) {
		if name, ok := ParseLine(line); ok {
			names = append(names, name)
		}
	}
	return names
}
