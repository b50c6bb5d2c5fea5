package syncer

import (
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cfgsync/internal/cfgerr"
)

// headerMarker prefixes the first line of every data document.
const headerMarker = "// "

// EncodeDocument builds the remote content of a data document: a header line
// carrying the relative path, then the raw file contents.
func EncodeDocument(relativePath string, contents []byte) string {
	return headerMarker + norm.NFC.String(relativePath) + "\n" + string(contents)
}

// ParseDocument recovers the relative path and body from a data document.
//
// The header is everything before the first "\n"; a document without a
// newline is all header with an empty body. The header must start with
// "// " and name a non-empty relative path inside the tree. A trailing
// "\r" on the header line is tolerated.
func ParseDocument(name, content string) (relativePath string, body string, err error) {
	header, body, _ := strings.Cut(content, "\n")
	header = strings.TrimSuffix(header, "\r")

	raw, ok := strings.CutPrefix(header, headerMarker)
	if !ok {
		return "", "", cfgerr.MalformedHeader(name, "missing path header")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", cfgerr.MalformedHeader(name, "empty path header")
	}

	p := norm.NFC.String(raw)
	if strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return "", "", cfgerr.MalformedHeader(name, "path header is not relative: "+p)
	}
	p = path.Clean(p)
	if !fs.ValidPath(p) || p == "." {
		return "", "", cfgerr.MalformedHeader(name, "path header escapes the config directory: "+raw)
	}
	return p, body, nil
}

// ReadmeContent is the summary document written on every push.
func ReadmeContent(timestamp string) string {
	return "# Compiled on " + timestamp + "\n\n"
}
