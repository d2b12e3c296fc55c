package checksum

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("checksum record not found")

// Store wraps Badger for checksum record persistence.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates a record store at the given path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get retrieves a record by working directory and filename.
func (s *Store) Get(dir, filename string) (*Record, error) {
	key := MakeKey(dir, filename)
	var rec Record

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(rec.Decode)
	})

	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put stores a record.
func (s *Store) Put(dir, filename string, rec *Record) error {
	key := MakeKey(dir, filename)
	value, err := rec.Encode()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Delete removes a record. Deleting an absent key is not an error.
func (s *Store) Delete(dir, filename string) error {
	key := MakeKey(dir, filename)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// DeletePrefix removes all records under a working directory.
func (s *Store) DeletePrefix(dir string) error {
	prefix := MakeKeyPrefix(dir)

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of records under a working directory.
func (s *Store) Count(dir string) (int, error) {
	prefix := MakeKeyPrefix(dir)
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	if err != nil {
		return 0, err
	}
	return count, nil
}
