package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildGetScanLevelsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.pbt")

	_, err := runCmd(t, "build",
		"--output", path,
		"--block-size", "64",
		"--input", writeFixture(t, dir),
	)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.FileExists(t, path+".manifest.json")

	out, err := runCmd(t, "get", "--file", path, "b")
	require.NoError(t, err)
	require.Equal(t, "2\n", out)

	out, err = runCmd(t, "scan", "--file", path, "b")
	require.NoError(t, err)
	require.Equal(t, "b\t2\nba\t5\n", out)

	out, err = runCmd(t, "levels", "--file", path)
	require.NoError(t, err)
	require.False(t, strings.HasPrefix(out, "levels:"))

	out, err = runCmd(t, "levels", "--file", path, "--full")
	require.NoError(t, err)
	require.Contains(t, out, "levels:")
	require.Contains(t, out, "out-of-range pointers: []")
}

func TestGetMissingKeyFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.pbt")
	_, err := runCmd(t, "build", "--output", path, "--input", writeFixture(t, dir))
	require.NoError(t, err)

	_, err = runCmd(t, "get", "--file", path, "absent-key")
	require.Error(t, err)
}

func TestBuildSortStagesUnsortedInput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.pbt")
	unsorted := filepath.Join(dir, "unsorted.tsv")
	require.NoError(t, os.WriteFile(unsorted, []byte("c\t7\na\t1\nba\t5\nb\t2\n"), 0o644))

	_, err := runCmd(t, "build", "--output", path, "--input", unsorted, "--sort", "--block-size", "64")
	require.NoError(t, err)

	out, err := runCmd(t, "scan", "--file", path)
	require.NoError(t, err)
	require.Equal(t, "a\t1\nb\t2\nba\t5\nc\t7\n", out)
}

func writeFixture(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "entries.tsv")
	content := "a\t1\nb\t2\nba\t5\nc\t7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
