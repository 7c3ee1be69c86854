package samples

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// readTree returns relative path -> content for every file under root.
func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

var sampleTree = map[string]string{
	"code/groovy/build.gradle":            "plugins {\n    id 'com.gradle.build-scan' version '@scanPluginVersion@'\n}\n",
	"code/kotlin/build.gradle.kts":        "plugins {\n    id(\"com.gradle.build-scan\") version \"@scanPluginVersion@\"\n}\n",
	"code/groovy/settings.gradle":         "rootProject.name = 'build-scan-sample'\n",
	"tests/build-scan.sample.conf":        "executable: gradle\nargs: build --scan\n",
	"code/kotlin/src/main/java/App.java":  "class App { @Override public String toString() { return \"app\"; } }\n",
}

func TestRun_SubstitutesAndMirrorsStructure(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "build", "samples")
	writeTree(t, src, sampleTree)

	res, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())
	require.NoError(t, err)

	got := readTree(t, out)
	require.Len(t, got, len(sampleTree))
	for rel, content := range sampleTree {
		assert.Contains(t, got, rel)
		if rel == "code/groovy/build.gradle" {
			assert.Equal(t, "plugins {\n    id 'com.gradle.build-scan' version '3.0'\n}\n", got[rel])
			continue
		}
		if rel == "code/kotlin/build.gradle.kts" {
			assert.Equal(t, "plugins {\n    id(\"com.gradle.build-scan\") version \"3.0\"\n}\n", got[rel])
			continue
		}
		assert.Equal(t, content, got[rel], "untouched file %s must be byte-identical", rel)
	}

	assert.Equal(t, 5, res.Files)
	assert.Equal(t, 2, res.Substitutions)
	assert.Equal(t, out, res.Output)
	for _, content := range got {
		assert.NotContains(t, content, "@scanPluginVersion@")
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "build", "samples")
	writeTree(t, src, sampleTree)
	p := New(src, out, TokenMap{"scanPluginVersion": "3.0"})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	first := readTree(t, out)

	_, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, readTree(t, out))
}

func TestRun_PreservesEmptyDirectoriesAndModes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not preserved on windows")
	}
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "code", "empty"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(src, "code", "gradlew"), []byte("#!/bin/sh\n"), 0o755))

	_, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(out, "code", "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = os.Stat(filepath.Join(out, "code", "gradlew"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestRun_BinaryFilesAreCopiedVerbatim(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	binary := "\x00\x01@Override@\x02"
	writeTree(t, src, map[string]string{"gradle/wrapper/gradle-wrapper.jar": binary})

	res, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, binary, readTree(t, out)["gradle/wrapper/gradle-wrapper.jar"])
	assert.Equal(t, 1, res.BinaryFiles)
	assert.Zero(t, res.Substitutions)
}

func TestRun_StrictRejectsPlaceholdersInBinaryFiles(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"libs/plugin.bin": "\x00\x01@scanPluginVersion@\x02"})

	_, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBuild))
	assert.Contains(t, err.Error(), "libs/plugin.bin: @scanPluginVersion@")
	assert.NoDirExists(t, out)

	opts := DefaultOptions()
	opts.Strict = false
	res, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).WithOptions(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.BinaryFiles)
	assert.Equal(t, "\x00\x01@scanPluginVersion@\x02", readTree(t, out)["libs/plugin.bin"])
}

func TestRun_CleanRemovesStaleOutput(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"a.txt": "@scanPluginVersion@"})
	writeTree(t, out, map[string]string{"stale.txt": "old"})

	_, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a.txt": "3.0"}, readTree(t, out))
}

func TestRun_OverlayKeepsForeignFiles(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"a.txt": "@scanPluginVersion@"})
	writeTree(t, out, map[string]string{"extra.txt": "kept", "a.txt": "old"})

	opts := DefaultOptions()
	opts.Clean = false
	_, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).WithOptions(opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a.txt": "3.0", "extra.txt": "kept"}, readTree(t, out))
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".guidebuilder-staging-", "staging directory must be removed")
	}
}

func TestRun_StrictRejectsUnresolvedTokens(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"build.gradle": "version '@scanPluginVersion@' // @gradleVersion@"})
	writeTree(t, out, map[string]string{"previous.txt": "previous run"})

	_, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryBuild))
	assert.Contains(t, err.Error(), "@gradleVersion@")
	// The failed run must not touch the previous output.
	assert.Equal(t, map[string]string{"previous.txt": "previous run"}, readTree(t, out))
}

func TestRun_LenientKeepsUnresolvedTokens(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	writeTree(t, src, map[string]string{"build.gradle": "@scanPluginVersion@ @gradleVersion@"})

	opts := DefaultOptions()
	opts.Strict = false
	_, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).WithOptions(opts).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "3.0 @gradleVersion@", readTree(t, out)["build.gradle"])
}

func TestRun_MissingSourceIsFilesystemError(t *testing.T) {
	base := t.TempDir()

	_, err := New(filepath.Join(base, "missing"), filepath.Join(base, "out"), TokenMap{"scanPluginVersion": "3.0"}).
		Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
	_, statErr := os.Stat(filepath.Join(base, "out"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRun_SourceMustBeDirectory(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "samples")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := New(file, filepath.Join(base, "out"), TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestRun_UnwritableOutputIsFilesystemError(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	writeTree(t, src, map[string]string{"a.txt": "x"})
	blocker := filepath.Join(base, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file, not a directory"), 0o600))

	_, err := New(src, filepath.Join(blocker, "samples"), TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestRun_RejectsOverlappingDirectories(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	writeTree(t, src, map[string]string{"a.txt": "x"})

	_, err := New(src, filepath.Join(src, "build"), TokenMap{"scanPluginVersion": "3.0"}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRun_InvalidTokensFailBeforeCopy(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	writeTree(t, src, map[string]string{"a.txt": "x"})

	_, err := New(src, filepath.Join(base, "out"), TokenMap{"scanPluginVersion": ""}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRun_CanceledContext(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "samples")
	out := filepath.Join(base, "out")
	writeTree(t, src, sampleTree)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, out, TokenMap{"scanPluginVersion": "3.0"}).Run(ctx)

	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCopyDir(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "src")
	dst := filepath.Join(base, "dst")
	writeTree(t, src, map[string]string{"a/b/c.txt": "c", "d.txt": "d"})

	require.NoError(t, CopyDir(src, dst))
	assert.Equal(t, map[string]string{"a/b/c.txt": "c", "d.txt": "d"}, readTree(t, dst))
}
