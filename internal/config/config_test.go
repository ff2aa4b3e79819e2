package config

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMerge_ListsConcatenate(t *testing.T) {
	dst := Document{"segments": []any{1, 2}}
	src := Document{"segments": []any{3}}

	require.NoError(t, Merge(dst, src))
	assert.Equal(t, []any{1, 2, 3}, dst["segments"], "dst elements first, order preserved")
}

func TestMerge_MappingsRecurse(t *testing.T) {
	dst := Document{"options": map[string]any{"x": 1}}
	src := Document{"options": map[string]any{"y": 2}}

	require.NoError(t, Merge(dst, src))
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, dst["options"])
}

func TestMerge_ScalarsReplaced(t *testing.T) {
	dst := Document{"sha1": "aaaa", "name": "first"}
	src := Document{"sha1": "bbbb"}

	require.NoError(t, Merge(dst, src))
	assert.Equal(t, "bbbb", dst["sha1"], "later document wins")
	assert.Equal(t, "first", dst["name"], "untouched keys survive")
}

func TestMerge_NestedScalarReplaced(t *testing.T) {
	dst := Document{"options": map[string]any{"base_path": "a", "verbose": false}}
	src := Document{"options": map[string]any{"verbose": true}}

	require.NoError(t, Merge(dst, src))
	assert.Equal(t, map[string]any{"base_path": "a", "verbose": true}, dst["options"])
}

func TestMerge_KindConflictFatal(t *testing.T) {
	dst := Document{"segments": []any{1}}
	src := Document{"segments": map[string]any{"oops": true}}

	err := Merge(dst, src)
	require.Error(t, err)

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeMergeConflict, cfgErr.Code)
	assert.Equal(t, "segments", cfgErr.Key)
}

func TestMerge_SpecExample(t *testing.T) {
	dst := Document{"segments": []any{1, 2}, "options": map[string]any{"x": 1}}
	src := Document{"segments": []any{3}, "options": map[string]any{"y": 2}}

	require.NoError(t, Merge(dst, src))
	assert.Equal(t, Document{
		"segments": []any{1, 2, 3},
		"options":  map[string]any{"x": 1, "y": 2},
	}, dst)
}

func TestLoad_MultipleDocuments(t *testing.T) {
	first := writeConfig(t, "base.yaml", `
segments:
  - [0x0, bin, header]
options:
  base_path: out
`)
	second := writeConfig(t, "extra.yaml", `
segments:
  - [0x40]
options:
  verbose: true
`)

	doc, err := Load(first, second)
	require.NoError(t, err)

	segments, ok := doc["segments"].([]any)
	require.True(t, ok)
	assert.Len(t, segments, 2)

	opts, err := NewOptions(doc, "", "")
	require.NoError(t, err)
	assert.Equal(t, "out", opts.BasePath)
	assert.True(t, opts.Verbose)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeNotFound, cfgErr.Code)
}

func TestValidate_MissingSegments(t *testing.T) {
	err := Validate(Document{"options": map[string]any{}})

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeSchemaViolation, cfgErr.Code)
}

func TestValidate_BadSHA1(t *testing.T) {
	err := Validate(Document{
		"segments": []any{},
		"sha1":     "not-a-digest",
	})

	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeSchemaViolation, cfgErr.Code)
}

func TestValidate_OK(t *testing.T) {
	doc := Document{
		"segments": []any{
			map[string]any{"start": 0, "type": "bin", "name": "header"},
		},
		"sha1": strings.Repeat("ab", 20),
		"options": map[string]any{
			"base_path": "out",
			"modes":     []any{"all"},
		},
	}
	assert.NoError(t, Validate(doc))
}

func TestNewOptions_Defaults(t *testing.T) {
	opts, err := NewOptions(Document{}, "", "")
	require.NoError(t, err)

	assert.Equal(t, ".splache.db", opts.CachePath)
	assert.Equal(t, "splat.ld", opts.LdScriptPath)
	assert.Equal(t, []string{"all"}, opts.Modes)
}

func TestNewOptions_FlagOverrides(t *testing.T) {
	doc := Document{"options": map[string]any{
		"base_path":   "cfg-out",
		"target_path": "cfg.z64",
	}}

	opts, err := NewOptions(doc, "flag-out", "flag.z64")
	require.NoError(t, err)
	assert.Equal(t, "flag-out", opts.BasePath)
	assert.Equal(t, "flag.z64", opts.TargetPath)
}

func TestOptions_ModeActive(t *testing.T) {
	opts := &Options{Modes: []string{"all"}}
	assert.True(t, opts.ModeActive("code"))
	assert.True(t, opts.ModeActive("ld"))

	opts.SetModes([]string{"ld"})
	assert.True(t, opts.ModeActive("ld"))
	assert.False(t, opts.ModeActive("code"))
}

func TestOptions_ResolvePath(t *testing.T) {
	opts := &Options{BasePath: "out"}
	assert.Equal(t, filepath.Join("out", "splat.ld"), opts.ResolvePath("splat.ld"))
	assert.Equal(t, "/abs/splat.ld", opts.ResolvePath("/abs/splat.ld"))
}

func TestVerifyChecksum(t *testing.T) {
	rom := []byte{0x80, 0x37, 0x12, 0x40}
	sum := sha1.Sum(rom)
	digest := hex.EncodeToString(sum[:])

	assert.NoError(t, VerifyChecksum(Document{"sha1": digest}, rom))
	assert.NoError(t, VerifyChecksum(Document{"sha1": strings.ToUpper(digest)}, rom),
		"compare is case-insensitive")
	assert.NoError(t, VerifyChecksum(Document{}, rom), "missing key disables the gate")

	err := VerifyChecksum(Document{"sha1": strings.Repeat("00", 20)}, rom)
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCodeChecksumMismatch, cfgErr.Code)
}
