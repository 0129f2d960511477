// Package fsutil holds the file helpers shared by the file-based backends.
package fsutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WriteFileAtomic writes the output of write to path using the temp-file,
// fsync, rename pattern. Readers never observe a partially written file.
func WriteFileAtomic(path string, perm os.FileMode, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing content: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// UniquePath returns dir/base+ext when no such file exists, otherwise the
// first free dir/base_N+ext counting N from 0.
func UniquePath(dir, base, ext string) string {
	candidate := filepath.Join(dir, base+ext)
	if !exists(candidate) {
		return candidate
	}
	for n := 0; ; n++ {
		candidate = filepath.Join(dir, base+"_"+strconv.Itoa(n)+ext)
		if !exists(candidate) {
			return candidate
		}
	}
}

// IDFromName strips ext from a file's base name. It returns false when the
// name does not carry ext or nothing is left.
func IDFromName(path, ext string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
		return "", false
	}
	id := strings.TrimSuffix(name, ext)
	return id, id != ""
}

// Writable reports whether the file at path may be rewritten by its owner.
func Writable(info os.FileInfo) bool {
	return info.Mode().Perm()&0o200 != 0
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
