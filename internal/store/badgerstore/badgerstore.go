// Package badgerstore keeps license records in an embedded Badger database.
package badgerstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/store"
)

var keyPrefix = []byte("license/")

// Store is a domain.LicenseStore backed by Badger.
type Store struct {
	db *badger.DB
}

// Open opens or creates the database in dir. An empty dir keeps the
// database in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func recordKey(sessionID string) []byte {
	return append(append([]byte(nil), keyPrefix...), sessionID...)
}

func (s *Store) PutLicense(sessionID string, record []byte) error {
	if err := store.ValidateID(sessionID); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(sessionID), record)
	})
}

func (s *Store) GetLicense(sessionID string) (record []byte, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(sessionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		record, err = item.ValueCopy(nil)
		ok = err == nil
		return err
	})
	return record, ok, err
}

func (s *Store) DeleteLicense(sessionID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(sessionID))
	})
}

// ListLicenses returns the stored session ids in key order.
func (s *Store) ListLicenses() ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	return ids, err
}

func (s *Store) Close() error { return s.db.Close() }

var _ domain.LicenseStore = (*Store)(nil)
