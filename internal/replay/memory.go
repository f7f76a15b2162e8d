package replay

import (
	"context"
	"encoding/hex"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// MemStore keeps the most recent digests in an ARC cache. Digests evicted
// from the cache are forgotten, so the guard it backs is only as long lived as
// its size allows.
type MemStore struct {
	sync.Mutex
	cache *lru.ARCCache
}

// NewMemStore returns a MemStore holding up to size digests.
func NewMemStore(size int) (*MemStore, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return &MemStore{cache: cache}, nil
}

func (m *MemStore) Insert(ctx context.Context, digest []byte, e *Entry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := hex.EncodeToString(digest)
	m.Lock()
	defer m.Unlock()
	if m.cache.Contains(k) {
		return true, nil
	}
	m.cache.Add(k, e)
	return false, nil
}

func (m *MemStore) Get(ctx context.Context, digest []byte) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, ok := m.cache.Get(hex.EncodeToString(digest))
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*Entry), nil
}

func (m *MemStore) Len(ctx context.Context) (int, error) {
	return m.cache.Len(), ctx.Err()
}

func (m *MemStore) Close(context.Context) error {
	m.cache.Purge()
	return nil
}

var _ Store = &MemStore{}
