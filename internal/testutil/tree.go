// Package testutil contains file tree helpers shared by tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

const (
	testDirPermissions  = 0o750
	testFilePermissions = 0o644
)

// WriteTree creates files below root. Keys are slash-separated relative
// paths; a key ending in "/" creates an empty directory.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if strings.HasSuffix(rel, "/") {
			if err := os.MkdirAll(full, testDirPermissions); err != nil {
				t.Fatalf("mkdir %s: %v", full, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), testDirPermissions); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(content), testFilePermissions); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
}

// ReadTree returns every regular file below root keyed by slash-separated
// relative path. Directories are included with a trailing "/" and no content.
func ReadTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			out[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("read tree %s: %v", root, err)
	}
	return out
}

// TreeAssertions checks the state of a directory tree.
type TreeAssertions struct {
	t       *testing.T
	baseDir string
}

// NewTreeAssertions creates assertions rooted at baseDir.
func NewTreeAssertions(t *testing.T, baseDir string) *TreeAssertions {
	return &TreeAssertions{t: t, baseDir: baseDir}
}

// AssertFileEquals validates the exact content of a file.
func (ta *TreeAssertions) AssertFileEquals(relativePath, expected string) *TreeAssertions {
	ta.t.Helper()
	content, err := os.ReadFile(filepath.Join(ta.baseDir, filepath.FromSlash(relativePath)))
	if err != nil {
		ta.t.Errorf("Failed to read file %s: %v", relativePath, err)
		return ta
	}
	if string(content) != expected {
		ta.t.Errorf("File %s:\nexpected: %q\nactual:   %q", relativePath, expected, string(content))
	}
	return ta
}

// AssertFileNotExists validates that a file does not exist.
func (ta *TreeAssertions) AssertFileNotExists(relativePath string) *TreeAssertions {
	ta.t.Helper()
	if _, err := os.Stat(filepath.Join(ta.baseDir, filepath.FromSlash(relativePath))); err == nil {
		ta.t.Errorf("Expected file to not exist: %s", relativePath)
	}
	return ta
}

var placeholder = regexp.MustCompile(`@[A-Za-z_][A-Za-z0-9_.\-]*@`)

// AssertNoPlaceholders validates that no @name@ placeholder remains in any file.
func (ta *TreeAssertions) AssertNoPlaceholders() *TreeAssertions {
	ta.t.Helper()
	for rel, content := range ReadTree(ta.t, ta.baseDir) {
		if m := placeholder.FindString(content); m != "" {
			ta.t.Errorf("Unresolved placeholder %s in %s", m, rel)
		}
	}
	return ta
}
