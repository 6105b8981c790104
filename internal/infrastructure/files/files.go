// Package files holds the filesystem primitives shared by the mint service and
// the synthesizer: directory containment, atomic publishing and upload name
// sanitising.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrOutsideDir is returned when a path resolves outside its designated directory.
var ErrOutsideDir = errors.New("path escapes designated directory")

// Within reports whether path resolves inside dir (dir itself excluded).
func Within(dir, path string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return true, nil
}

// Resolve joins a client-supplied name onto dir and refuses anything that
// would leave it: absolute names, ".." segments, or an empty name.
func Resolve(dir, name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", ErrOutsideDir
	}
	slashed := filepath.ToSlash(name)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(name) {
		return "", ErrOutsideDir
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return "", ErrOutsideDir
		}
	}

	joined := filepath.Join(dir, filepath.FromSlash(slashed))
	ok, err := Within(dir, joined)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrOutsideDir
	}
	return joined, nil
}

// WriteAtomic streams content produced by write into a temporary file next to
// path and renames it into place. On any error the temporary file is removed
// and nothing is left at path.
func WriteAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces an uploaded file name to a flat ASCII name safe to
// store on disk. Separators become underscores, accents are folded and
// anything outside [A-Za-z0-9_.-] is dropped. The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range name {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(b.String())
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	return strings.Trim(name, "._")
}

// SplitExt returns the base name without its final extension, and the
// lower-cased extension without the dot.
func SplitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), strings.ToLower(strings.TrimPrefix(ext, "."))
}
