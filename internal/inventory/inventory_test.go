package inventory

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	return path
}

func TestInventoryListsInstalledVersions(t *testing.T) {
	dir := t.TempDir()
	newer := touch(t, dir, "terraform-0.12.2")
	older := touch(t, dir, "terraform-0.11.14")

	inv := New(dir, "terraform")
	assert.Equal(t, []string{"0.11.14", "0.12.2"}, inv.Versions())
	assert.Equal(t, []string{older, newer}, inv.Binaries())
	assert.Equal(t, map[string]string{"0.11.14": older, "0.12.2": newer}, inv.Manifest())
	assert.True(t, inv.Any())

	latest, ok := inv.Latest()
	require.True(t, ok)
	assert.Equal(t, "0.12.2", latest)

	path, err := inv.Validate("0.11.14")
	require.NoError(t, err)
	assert.Equal(t, older, path)
	assert.NotEqual(t, newer, path)
}

func TestInventorySortsByVersionNotName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"terraform-0.9.0", "terraform-0.10.0", "terraform-0.10.0-rc1", "terraform-0.2.11"} {
		touch(t, dir, name)
	}

	inv := New(dir, "terraform")
	assert.Equal(t, []string{"0.2.11", "0.9.0", "0.10.0-rc1", "0.10.0"}, inv.Versions())
	assert.Equal(t, []string{"0.2.11", "0.9.0", "0.10.0-rc1", "0.10.0"}, inv.Catalog().Strings())
}

func TestInventoryIgnoresUnrelatedEntries(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "terraform-0.12.2")
	touch(t, dir, "terraform-0.12.3.zip")
	touch(t, dir, "terraform_0.12.4")
	touch(t, dir, "terraform-latest")
	touch(t, dir, ".terraform.lock")
	touch(t, dir, "terragrunt-0.20.0")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "terraform-0.13.0"), 0o755))

	inv := New(dir, "terraform")
	assert.Equal(t, []string{"0.12.2"}, inv.Versions())
}

func TestInventoryEmptyDirectory(t *testing.T) {
	for name, dir := range map[string]string{
		"empty":   t.TempDir(),
		"missing": filepath.Join(t.TempDir(), "does-not-exist"),
	} {
		t.Run(name, func(t *testing.T) {
			inv := New(dir, "terraform")
			assert.Empty(t, inv.Versions())
			assert.Empty(t, inv.Binaries())
			assert.False(t, inv.Any())

			_, ok := inv.Latest()
			assert.False(t, ok)

			_, err := inv.Validate("0.11.14")
			require.ErrorIs(t, err, ErrVersionNotInstalled)

			var notInstalled *NotInstalledError
			require.True(t, errors.As(err, &notInstalled))
			assert.Equal(t, "0.11.14", notInstalled.Version)
		})
	}
}

func TestInventoryRescansOnEveryQuery(t *testing.T) {
	dir := t.TempDir()
	inv := New(dir, "terraform")
	assert.False(t, inv.Any())

	path := touch(t, dir, "terraform-0.12.2")
	assert.Equal(t, []string{"0.12.2"}, inv.Versions())

	require.NoError(t, os.Remove(path))
	assert.Empty(t, inv.Versions())
}

func TestInventoryQueriesAreStable(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "terraform-0.11.14")
	touch(t, dir, "terraform-0.12.2")

	inv := New(dir, "terraform")
	assert.Equal(t, inv.Versions(), inv.Versions())
	assert.Equal(t, inv.Binaries(), inv.Binaries())
}

func TestInventoryPathForAndLookup(t *testing.T) {
	dir := t.TempDir()
	inv := New(dir, "terraform")

	want := inv.PathFor("0.12.2")
	assert.Equal(t, dir, filepath.Dir(want))

	_, ok := inv.Lookup("0.12.2")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(want, nil, 0o755))
	got, ok := inv.Lookup("0.12.2")
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, dir, inv.Dir())
}
