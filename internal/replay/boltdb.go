package replay

import (
	"context"
	"path/filepath"
	"sync"

	json "github.com/nikkolasg/hexjson"
	bolt "go.etcd.io/bbolt"

	"github.com/drand/dlproof/common/log"
	"github.com/drand/dlproof/internal/fs"
)

// BoltStore implements the Store interface using the kv storage boltdb. Entries
// are stored JSON-encoded under their digest.
//
//nolint:gocritic// We do want to have a mutex here
type BoltStore struct {
	sync.Mutex
	db *bolt.DB

	log log.Logger
}

var digestBucket = []byte("digests")

// BoltFileName is the name of the file boltdb writes to
const BoltFileName = "replay.db"

// BoltStoreOpenPerm is the permission we will use to read bolt store file from disk
const BoltStoreOpenPerm = 0660

// NewBoltStore opens, or creates, the database in folder.
func NewBoltStore(ctx context.Context, l log.Logger, folder string, opts *bolt.Options) (*BoltStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := fs.CreateSecureFolder(folder); err != nil {
		l.Warnw("replay database folder", "folder", folder, "err", err)
	}

	existing := fs.FileExists(folder, BoltFileName)
	db, err := bolt.Open(filepath.Join(folder, BoltFileName), BoltStoreOpenPerm, opts)
	if err != nil {
		return nil, err
	}
	l.Debugw("opened replay database", "folder", folder, "existing", existing)
	// create the bucket already
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(digestBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{
		log: l.Named("boltdb"),
		db:  db,
	}, nil
}

// Insert implements the Store interface.
func (b *BoltStore) Insert(ctx context.Context, digest []byte, e *Entry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	value, err := json.Marshal(e)
	if err != nil {
		return false, err
	}

	b.Lock()
	defer b.Unlock()
	var seen bool
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(digestBucket)
		if bucket.Get(digest) != nil {
			seen = true
			return nil
		}
		return bucket.Put(digest, value)
	})
	return seen, err
}

// Get implements the Store interface.
func (b *BoltStore) Get(ctx context.Context, digest []byte) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e := new(Entry)
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(digestBucket).Get(digest)
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, e)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Len returns the number of recorded digests.
func (b *BoltStore) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var length int
	err := b.db.View(func(tx *bolt.Tx) error {
		length = tx.Bucket(digestBucket).Stats().KeyN
		return nil
	})
	if err != nil {
		b.log.Warnw("", "boltdb", "error getting length", "err", err)
	}
	return length, err
}

// Close closes the database.
func (b *BoltStore) Close(context.Context) error {
	err := b.db.Close()
	if err != nil {
		b.log.Errorw("", "boltdb", "close", "err", err)
	}
	return err
}

var _ Store = &BoltStore{}
