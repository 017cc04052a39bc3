package qipc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRegistry(t *testing.T) {
	r := NewEngineRegistry()
	r.Register("rdb", NewEngine("eq-rdb", 5010))
	r.Register("hdb", NewEngine("eq-hdb", 5012))

	// First registration becomes the default.
	assert.Equal(t, "rdb", r.Default())

	e, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "eq-rdb", e.Host)

	e, err = r.Get("hdb")
	require.NoError(t, err)
	assert.Equal(t, 5012, e.Port)

	require.NoError(t, r.SetDefault("hdb"))
	assert.Equal(t, "hdb", r.Default())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrEngineNotFound)
	assert.Equal(t, []string{"hdb", "rdb"}, r.Names())
}

func TestEngineRegistryEmpty(t *testing.T) {
	r := NewEngineRegistry()
	_, err := r.Get("")
	assert.ErrorIs(t, err, ErrEngineNotFound)
	assert.Error(t, r.SetDefault("x"))
}

func TestRegistryFromDSNs(t *testing.T) {
	r, err := RegistryFromDSNs(map[string]string{
		"rdb": "kdb://eq-rdb:5010",
		"hdb": "kdb+tls://user:pw@eq-hdb:5012",
	})
	require.NoError(t, err)
	e, err := r.Get("hdb")
	require.NoError(t, err)
	assert.NotNil(t, e.TLS)
	assert.Equal(t, "user", e.User)
}

func TestRegistryFromEnv(t *testing.T) {
	t.Setenv("QIPC_RDB_HOST", "env-rdb")
	t.Setenv("QIPC_RDB_PORT", "6010")
	t.Setenv("QIPC_RDB_USER", "svc")
	t.Setenv("QIPC_RDB_PASS", "pw")

	r, err := RegistryFromEnv([]string{"rdb", "hdb"}, "QIPC")
	require.NoError(t, err)

	e, err := r.Get("rdb")
	require.NoError(t, err)
	assert.Equal(t, "env-rdb", e.Host)
	assert.Equal(t, 6010, e.Port)
	assert.Equal(t, "svc", e.User)
	assert.Equal(t, "pw", e.Password)

	// Unset names fall back to localhost:5000.
	e, err = r.Get("hdb")
	require.NoError(t, err)
	assert.Equal(t, "localhost", e.Host)
	assert.Equal(t, 5000, e.Port)
}

func TestEngineGroup(t *testing.T) {
	eq := NewEngineRegistry()
	eq.Register("rdb", NewEngine("eq-rdb", 5010))
	fx := NewEngineRegistry()
	fx.Register("rdb", NewEngine("fx-rdb", 5020))

	g := NewEngineGroup()
	g.Register("equities", eq)
	g.Register("fx", fx)

	assert.Equal(t, []string{"equities", "fx"}, g.Names())
	r, err := g.Get("fx")
	require.NoError(t, err)
	e, err := r.Get("rdb")
	require.NoError(t, err)
	assert.Equal(t, "fx-rdb", e.Host)

	_, err = g.Get("rates")
	assert.ErrorIs(t, err, ErrEngineNotFound)
}

func TestRegistryFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engines.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rdb:
  host: eq-rdb
  port: 5010
  user: svc
hdb:
  dsn: kdb://eq-hdb:5012
`), 0o644))

	r, err := RegistryFromFile(path)
	require.NoError(t, err)
	e, err := r.Get("rdb")
	require.NoError(t, err)
	assert.Equal(t, "eq-rdb", e.Host)
	assert.Equal(t, 5010, e.Port)
	assert.Equal(t, "svc", e.User)

	e, err = r.Get("hdb")
	require.NoError(t, err)
	assert.Equal(t, 5012, e.Port)
}

func TestGroupFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "group.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "equities": {"rdb": {"host": "eq-rdb", "port": 5010}},
  "fx": {"rdb": {"host": "fx-rdb", "port": 5020}}
}`), 0o644))

	g, err := GroupFromFile(path)
	require.NoError(t, err)
	r, err := g.Get("equities")
	require.NoError(t, err)
	e, err := r.Get("rdb")
	require.NoError(t, err)
	assert.Equal(t, "eq-rdb", e.Host)
}

func TestRegistryFromMissingFile(t *testing.T) {
	_, err := RegistryFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
