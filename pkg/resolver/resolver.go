// Package resolver expands glob-style patterns against the filesystem.
//
// Patterns support single-level wildcards (* and ?), recursive descent
// (**, matching zero or more directory levels) and, when resolved
// relative to a specific directory instead of the scan root, leading
// "../" segments to ascend before matching. Patterns exclude the file
// extension: the resolver appends each extension from the accepted set,
// mirroring how the scan configuration lists extensions separately.
package resolver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/geoprep/panprep/pkg/rules"
)

// Resolve expands pattern against baseDir and returns the absolute
// paths of existing regular files whose extension is in exts, sorted
// lexicographically. Non-existent intermediate directories are not an
// error: the result is simply empty. The traversal is read-only.
func Resolve(baseDir, pattern string, exts rules.ExtensionSet) ([]string, error) {
	base, rel := ascend(baseDir, pattern)

	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(absBase); err != nil || !info.IsDir() {
		return nil, nil
	}

	fsys := os.DirFS(absBase)
	seen := make(map[string]struct{})
	var out []string
	for _, ext := range exts.List() {
		matches, err := doublestar.Glob(fsys, rel+"."+ext, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			abs := filepath.Join(absBase, filepath.FromSlash(m))
			if _, ok := seen[abs]; ok {
				continue
			}
			seen[abs] = struct{}{}
			out = append(out, abs)
		}
	}

	sort.Strings(out)
	return out, nil
}

// ascend strips leading "../" segments from pattern, moving baseDir up
// one level per segment. The remaining pattern is slash-separated for
// matching against an fs.FS rooted at the returned base.
func ascend(baseDir, pattern string) (string, string) {
	rel := filepath.ToSlash(pattern)
	for strings.HasPrefix(rel, "../") {
		rel = strings.TrimPrefix(rel, "../")
		baseDir = filepath.Dir(baseDir)
	}
	return baseDir, rel
}
