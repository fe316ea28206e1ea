package lambdas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stepfunction-cloner/cloneerr"
)

func TestWriteSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := WriteSnapshot(dir, Snapshot{
		"pay":   {"MODE": "live"},
		"order": {},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SnapshotFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{
  "order": {},
  "pay": {
    "MODE": "live"
  }
}`, string(data))
}

func TestReadSnapshotStringifiesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"order": {"NAME": "orders", "PORT": 8080, "RATIO": 0.10, "DEBUG": true, "EMPTY": null, "LIST": [1, "a"], "OBJ": {"k": "v"}},
		"pay": null
	}`), 0644))

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		"order": {
			"NAME":  "orders",
			"PORT":  "8080",
			"RATIO": "0.10",
			"DEBUG": "true",
			"EMPTY": "null",
			"LIST":  `[1,"a"]`,
			"OBJ":   `{"k":"v"}`,
		},
		"pay": {},
	}, snap)
}

func TestReadSnapshotFailures(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSnapshot(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, cloneerr.ErrReadFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"order": "not-an-object"}`), 0644))
	_, err = ReadSnapshot(bad)
	assert.ErrorIs(t, err, cloneerr.ErrMalformedEnvironment)
}
