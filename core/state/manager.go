package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"quarkdapp/storage"
)

// ErrTxClosed is returned when a committed or discarded transaction is used.
var ErrTxClosed = errors.New("state: transaction closed")

// Manager owns the backing database and hands out staged transactions.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a transaction that stages writes in memory until Commit.
func (m *Manager) Begin() *Tx {
	return &Tx{
		db:      m.db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// Tx is a write set over the backing database. Reads observe the staged
// writes of the same transaction. Nothing reaches the database before Commit,
// which applies every staged change in a single batch.
type Tx struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
	closed  bool
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, ErrTxClosed
	}
	k := string(key)
	if _, ok := tx.deletes[k]; ok {
		return nil, nil
	}
	if v, ok := tx.writes[k]; ok {
		return v, nil
	}
	v, err := tx.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (tx *Tx) put(key, value []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	k := string(key)
	delete(tx.deletes, k)
	tx.writes[k] = append([]byte(nil), value...)
	return nil
}

func (tx *Tx) del(key []byte) error {
	if tx.closed {
		return ErrTxClosed
	}
	k := string(key)
	delete(tx.writes, k)
	tx.deletes[k] = struct{}{}
	return nil
}

// KVPut stores value under the hashed key using RLP encoding.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.put(key, encoded)
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := tx.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key.
func (tx *Tx) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return tx.del(key)
}

// Pending reports the number of staged changes.
func (tx *Tx) Pending() int { return len(tx.writes) + len(tx.deletes) }

// Commit writes the staged changes atomically and closes the transaction.
func (tx *Tx) Commit() error {
	if tx.closed {
		return ErrTxClosed
	}
	batch := storage.NewBatch()
	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		batch.Put([]byte(k), tx.writes[k])
	}
	deleted := make([]string, 0, len(tx.deletes))
	for k := range tx.deletes {
		deleted = append(deleted, k)
	}
	sort.Strings(deleted)
	for _, k := range deleted {
		batch.Delete([]byte(k))
	}
	if err := tx.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	tx.close()
	return nil
}

// Discard drops the staged changes. Discarding a closed transaction is a
// no-op.
func (tx *Tx) Discard() {
	tx.close()
}

func (tx *Tx) close() {
	tx.closed = true
	tx.writes = nil
	tx.deletes = nil
}
