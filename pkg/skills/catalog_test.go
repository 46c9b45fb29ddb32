package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, dir, filename, name string) {
	t.Helper()
	content := `
name: ` + name + `
description: test skill
steps:
  - id: noop
    kind: compute
    target: "1"
`
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func TestCatalog_Load(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "alpha.yaml", "alpha")
	writeSkill(t, dir, "beta.yml", "beta")
	writeSkill(t, filepath.Join(dir, "nested"), "gamma.yaml", "gamma")

	catalog, err := NewCatalog(WithDirs(dir))
	require.NoError(t, err)

	assert.Equal(t, 3, catalog.Len())

	def, ok := catalog.Get("gamma")
	require.True(t, ok)
	assert.Equal(t, "gamma", def.Name)

	_, ok = catalog.Get("missing")
	assert.False(t, ok)
}

func TestCatalog_List_Sorted(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "b.yaml", "beta")
	writeSkill(t, dir, "a.yaml", "alpha")

	catalog, err := NewCatalog(WithDirs(dir))
	require.NoError(t, err)

	defs := catalog.List()
	require.Len(t, defs, 2)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "beta", defs[1].Name)
}

func TestCatalog_EarlierDirTakesPrecedence(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writeSkill(t, first, "skill.yaml", "shared")
	require.NoError(t, os.WriteFile(filepath.Join(second, "skill.yaml"), []byte(`
name: shared
description: shadowed copy
steps:
  - id: other
    kind: compute
    target: "2"
`), 0o644))

	catalog, err := NewCatalog(WithDirs(first, second))
	require.NoError(t, err)

	def, ok := catalog.Get("shared")
	require.True(t, ok)
	assert.Equal(t, "noop", def.Steps[0].ID)
}

func TestCatalog_SkipsInvalidDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "good.yaml", "good")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\n"), 0o644))

	catalog, err := NewCatalog(WithDirs(dir))
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.Len())
	_, ok := catalog.Get("bad")
	assert.False(t, ok)
}

func TestCatalog_MissingDirIgnored(t *testing.T) {
	catalog, err := NewCatalog(WithDirs(filepath.Join(t.TempDir(), "does-not-exist")))
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Len())
}

func TestCatalog_Reload(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "one.yaml", "one")

	catalog, err := NewCatalog(WithDirs(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.Len())

	writeSkill(t, dir, "two.yaml", "two")
	require.NoError(t, catalog.Reload())
	assert.Equal(t, 2, catalog.Len())
}
