package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/ppiankov/postrelay/internal/post"
)

// BadgerStore keeps posts as JSON values under "<table>/<id>" keys.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

// OpenBadger opens the badger directory at path. An empty path keeps the
// data in memory.
func OpenBadger(path, table string) (*BadgerStore, error) {
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("table is required")
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	if strings.TrimSpace(path) == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, prefix: table + "/"}, nil
}

func (s *BadgerStore) key(id string) []byte {
	return []byte(s.prefix + id)
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) Get(_ context.Context, id string) (*post.Post, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	var found *post.Post
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		p, err := decodeRecord(data)
		if err != nil {
			return err
		}
		found = &p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return found, nil
}

func (s *BadgerStore) Put(_ context.Context, p post.Post) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if err := validateID(p.ID); err != nil {
		return err
	}

	data, err := json.Marshal(toRecord(p))
	if err != nil {
		return fmt.Errorf("encode post %s: %w", p.ID, err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(p.ID), data)
	}); err != nil {
		return fmt.Errorf("put post %s: %w", p.ID, err)
	}
	return nil
}

func (s *BadgerStore) Scan(ctx context.Context) ([]post.Post, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var posts []post.Post
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(s.prefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			p, err := decodeRecord(data)
			if err != nil {
				return err
			}
			posts = append(posts, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	return posts, nil
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if err := validateID(id); err != nil {
		return err
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(id))
	}); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}
