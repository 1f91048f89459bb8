package gen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const unformatted = DefaultHeader + `

package fixture

import "strings"

func  upper(s string) string { return strings.ToUpper(s) }
`

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, DefaultFileName)
	cfg := MustNewConfig()
	result := func() *Result {
		return &Result{Files: []*File{{Package: "example.com/fixture", Path: target, Content: []byte(unformatted), Sites: 1}}}
	}

	stats, err := Write(result(), MustNewConfig(WithDryRun(true)))
	require.NoError(t, err)
	assert.Equal(t, WriteStats{}, *stats)
	assert.NoFileExists(t, target)

	stats, err = Write(result(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
	assert.Positive(t, stats.Bytes)
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(content), "func upper(s string) string")
	info, err := os.Stat(target)
	require.NoError(t, err)

	stats, err = Write(result(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Written)
	assert.Equal(t, 1, stats.Unchanged)
	again, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestWriteFormatError(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, DefaultFileName)
	res := &Result{Files: []*File{{Path: target, Content: []byte("package fixture\n\nfunc {")}}}

	_, err := Write(res, MustNewConfig())
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	assert.NoFileExists(t, target)
	assert.FileExists(t, target+".error")
}

func TestWriteStale(t *testing.T) {
	dir := t.TempDir()
	generated := filepath.Join(dir, "a", DefaultFileName)
	handwritten := filepath.Join(dir, "b", DefaultFileName)
	for _, p := range []string{generated, handwritten} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	}
	require.NoError(t, os.WriteFile(generated, []byte(DefaultHeader+"\n\npackage a\n"), 0o644))
	require.NoError(t, os.WriteFile(handwritten, []byte("package b\n"), 0o644))

	res := &Result{Stale: []string{generated, handwritten, filepath.Join(dir, "c", DefaultFileName)}}
	stats, err := Write(res, MustNewConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	assert.NoFileExists(t, generated)
	assert.FileExists(t, handwritten)
}

func TestIsGenerated(t *testing.T) {
	cfg := MustNewConfig(WithFileName("queries_gen.go"))
	assert.True(t, IsGenerated("/src/app/queries_gen.go", cfg))
	assert.False(t, IsGenerated("/src/app/queries.go", cfg))
	assert.False(t, IsGenerated("/src/app/"+DefaultFileName, cfg))
}
