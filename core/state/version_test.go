package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"quarkdapp/storage"
)

func TestEnsureSchemaVersion(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	require.NoError(t, mgr.EnsureSchemaVersion())
	tx := mgr.Begin()
	stored, ok, err := tx.SchemaVersion()
	tx.Discard()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, SchemaVersion, stored)

	require.NoError(t, mgr.EnsureSchemaVersion())

	tx = mgr.Begin()
	require.NoError(t, tx.KVPut(metaKey(versionField), uint64(SchemaVersion+1)))
	require.NoError(t, tx.Commit())
	err = mgr.EnsureSchemaVersion()
	require.True(t, errors.Is(err, ErrSchemaVersionMismatch))
}
