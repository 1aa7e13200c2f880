package state

import (
	"errors"
	"fmt"
	"math"
)

// SchemaVersion identifies the on-disk record layout. Increment it whenever
// a stored record changes shape.
const SchemaVersion uint32 = 1

var versionField = []byte("schema-version")

// ErrSchemaVersionMismatch indicates the stored schema version does not
// match the version supported by the current binary.
var ErrSchemaVersionMismatch = errors.New("state: schema version mismatch")

// SchemaVersion returns the stored schema version and whether one was
// recorded.
func (tx *Tx) SchemaVersion() (uint32, bool, error) {
	var stored uint64
	ok, err := tx.KVGet(metaKey(versionField), &stored)
	if err != nil || !ok {
		return 0, ok, err
	}
	if stored > uint64(math.MaxUint32) {
		return 0, false, fmt.Errorf("state: schema version overflow: %d", stored)
	}
	return uint32(stored), true, nil
}

// EnsureSchemaVersion stamps an empty store with SchemaVersion and rejects a
// store written by an incompatible binary.
func (m *Manager) EnsureSchemaVersion() error {
	tx := m.Begin()
	stored, ok, err := tx.SchemaVersion()
	if err != nil {
		tx.Discard()
		return err
	}
	if ok {
		tx.Discard()
		if stored != SchemaVersion {
			return fmt.Errorf("%w: stored %d, supported %d", ErrSchemaVersionMismatch, stored, SchemaVersion)
		}
		return nil
	}
	if err := tx.KVPut(metaKey(versionField), uint64(SchemaVersion)); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}
