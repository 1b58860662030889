// Package boltstore is the embedded key/value storage driver. Every record kind
// has its own bucket keyed by id; values are gob encoded.
package boltstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/boltdb/bolt"

	"github.com/cleared-dev/spendlens/internal/model"
	"github.com/cleared-dev/spendlens/internal/store"
)

var (
	transactionsBucket = []byte("transactions")
	categoriesBucket   = []byte("categories")
	accountsBucket     = []byte("accounts")
	activityBucket     = []byte("activity")
)

// DB is a store.Store backed by a bolt file.
type DB struct {
	db *bolt.DB
}

// Open opens or creates the bolt file at path, creates the buckets and seeds
// the root category.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{transactionsBucket, categoriesBucket, accountsBucket, activityBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		b := tx.Bucket(categoriesBucket)
		if b.Get([]byte(model.UncategorizedID)) == nil {
			return put(b, model.UncategorizedID, model.Root())
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

// Close closes the bolt file.
func (d *DB) Close() error { return d.db.Close() }

// RunInTransaction implements store.Store. Bolt allows a single writer, so
// units of work are serialized.
func (d *DB) RunInTransaction(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

type boltTx struct {
	tx *bolt.Tx
}

func put(b *bolt.Bucket, key string, v any) error {
	var val bytes.Buffer
	if err := gob.NewEncoder(&val).Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Put([]byte(key), val.Bytes())
}

func decode(k, v []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", k, err)
	}
	return nil
}

func each[T any](b *bolt.Bucket, fn func(T) error) error {
	return b.ForEach(func(k, v []byte) error {
		var item T
		if err := decode(k, v, &item); err != nil {
			return err
		}
		return fn(item)
	})
}

func (t *boltTx) AllTransactions(ctx context.Context) ([]model.Transaction, error) {
	var txns []model.Transaction
	err := each(t.tx.Bucket(transactionsBucket), func(txn model.Transaction) error {
		txns = append(txns, txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	store.SortTransactions(txns)
	return txns, nil
}

func (t *boltTx) TransactionByID(ctx context.Context, id string) (model.Transaction, error) {
	var txn model.Transaction
	v := t.tx.Bucket(transactionsBucket).Get([]byte(id))
	if v == nil {
		return txn, fmt.Errorf("transaction %s: %w", id, store.ErrNotFound)
	}
	err := decode([]byte(id), v, &txn)
	return txn, err
}

func (t *boltTx) InsertTransactions(ctx context.Context, txns []model.Transaction) error {
	b := t.tx.Bucket(transactionsBucket)
	accounts := t.tx.Bucket(accountsBucket)
	for _, txn := range txns {
		if accounts.Get([]byte(txn.InstitutionID)) == nil {
			return fmt.Errorf("insert transaction %s: unknown institution %q", txn.ID, txn.InstitutionID)
		}
		if txn.CategoryPath == "" {
			txn.CategoryPath = model.UncategorizedPath
		}
		if txn.Direction == "" {
			txn.Direction = model.DirectionDebit
		}
		txn.CreatedAt = txn.CreatedAt.UTC()
		txn.UpdatedAt = txn.UpdatedAt.UTC()
		if err := put(b, txn.ID, txn); err != nil {
			return fmt.Errorf("insert transaction %s: %w", txn.ID, err)
		}
	}
	return nil
}

func (t *boltTx) UpdateTransactionCategory(ctx context.Context, id, path string, updatedAt time.Time) error {
	txn, err := t.TransactionByID(ctx, id)
	if err != nil {
		return err
	}
	txn.CategoryPath = path
	txn.UpdatedAt = updatedAt.UTC()
	return put(t.tx.Bucket(transactionsBucket), id, txn)
}

func (t *boltTx) AllCategories(ctx context.Context) ([]model.Category, error) {
	// Keys iterate in byte order, which is id order.
	var cats []model.Category
	err := each(t.tx.Bucket(categoriesBucket), func(c model.Category) error {
		cats = append(cats, c)
		return nil
	})
	return cats, err
}

func (t *boltTx) ReplaceCategories(ctx context.Context, cats []model.Category) error {
	if err := t.tx.DeleteBucket(categoriesBucket); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	b, err := t.tx.CreateBucket(categoriesBucket)
	if err != nil {
		return fmt.Errorf("create categories bucket: %w", err)
	}
	for _, c := range cats {
		if err := put(b, c.ID, c); err != nil {
			return fmt.Errorf("insert category %s: %w", c.ID, err)
		}
	}
	return nil
}

func (t *boltTx) AllAccounts(ctx context.Context) ([]model.Account, error) {
	var accts []model.Account
	err := each(t.tx.Bucket(accountsBucket), func(a model.Account) error {
		accts = append(accts, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	store.SortAccounts(accts)
	return accts, nil
}

func (t *boltTx) UpsertAccount(ctx context.Context, a model.Account) error {
	b := t.tx.Bucket(accountsBucket)
	if v := b.Get([]byte(a.ID)); v != nil {
		var existing model.Account
		if err := decode([]byte(a.ID), v, &existing); err != nil {
			return err
		}
		a.CreatedAt = existing.CreatedAt
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	if err := put(b, a.ID, a); err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

func (t *boltTx) AppendActivity(ctx context.Context, a model.Activity) error {
	a.Datetime = a.Datetime.UTC()
	if err := put(t.tx.Bucket(activityBucket), a.ID, a); err != nil {
		return fmt.Errorf("insert activity %s: %w", a.ID, err)
	}
	return nil
}

func (t *boltTx) Activity(ctx context.Context, userID string) ([]model.Activity, error) {
	var out []model.Activity
	err := each(t.tx.Bucket(activityBucket), func(a model.Activity) error {
		if a.UserID == userID {
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Datetime.Equal(out[j].Datetime) {
			return out[i].Datetime.After(out[j].Datetime)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
