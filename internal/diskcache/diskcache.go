// Package diskcache implements a byte-bounded, on-disk LRU file cache.
// Entries are committed atomically: InsertWith streams into a staging
// file under the cache root and renames it into place only once the
// writer function succeeds, so a failed or partial download is never
// observable as a cache hit.
package diskcache

import (
	"container/list"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrFileNotInCache means key has no resident entry.
var ErrFileNotInCache = errors.New("diskcache: file not in cache")

type entry struct {
	key  string
	size int64
}

// Cache is a byte-bounded LRU over files rooted at a directory. A Cache is
// safe for concurrent use; the jar manager's single-writer mailbox means
// in practice there is only ever one caller at a time, but the mutex keeps
// the type correct on its own.
type Cache struct {
	root     string
	capacity int64

	mu    sync.Mutex
	size  int64
	ll    *list.List
	items map[string]*list.Element
}

// New returns a Cache rooted at dir with the given byte capacity. dir is
// created if it does not exist. Any files already present under dir from
// a prior process are not indexed: a cold index is the simplest correct
// behavior (a stale file will simply be treated as absent and
// re-downloaded, then overwrite the orphan on insert).
func New(dir string, capacity int64) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "diskcache: creating root %s", dir)
	}
	return &Cache{
		root:     dir,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}, nil
}

// path returns the absolute filesystem path for a cache key.
func (c *Cache) path(key string) string {
	return filepath.Join(c.root, filepath.FromSlash(key))
}

// GetFile returns an open handle to the cached file for key, promoting it
// to most-recently-used. Returns ErrFileNotInCache if key has no resident
// entry.
func (c *Cache) GetFile(key string) (*os.File, error) {
	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		c.ll.MoveToFront(el)
	}
	c.mu.Unlock()

	if !ok {
		return nil, ErrFileNotInCache
	}

	f, err := os.Open(c.path(key))
	if err != nil {
		return nil, errors.Wrapf(err, "diskcache: opening %s", key)
	}
	return f, nil
}

// Path returns the absolute filesystem path for the cached entry at key,
// promoting it to most-recently-used, without opening a file descriptor.
// Returns ErrFileNotInCache if key has no resident entry.
func (c *Cache) Path(key string) (string, error) {
	c.mu.Lock()
	el, ok := c.items[key]
	if ok {
		c.ll.MoveToFront(el)
	}
	c.mu.Unlock()

	if !ok {
		return "", ErrFileNotInCache
	}
	return c.path(key), nil
}

// WriterFunc receives a writable sink for InsertWith to stream bytes into.
type WriterFunc func(w io.Writer) error

// InsertWith allocates a new entry for key, invokes fn with a writable
// sink, and commits the write atomically: fn's output lands in a staging
// file under the cache root and is renamed into place only if fn returns
// nil. Any error from fn, or from the staging/rename machinery, leaves no
// trace of a partial entry. Eviction runs after a successful commit to
// bring total size back under capacity.
func (c *Cache) InsertWith(key string, fn WriterFunc) error {
	dest := c.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrapf(err, "diskcache: creating directory for %s", key)
	}

	staging := dest + ".tmp-" + uuid.New().String()
	stagingFile, err := os.Create(staging)
	if err != nil {
		return errors.Wrapf(err, "diskcache: creating staging file for %s", key)
	}

	if err := fn(stagingFile); err != nil {
		stagingFile.Close()
		os.Remove(staging)
		return errors.Wrapf(err, "diskcache: writing %s", key)
	}
	if err := stagingFile.Close(); err != nil {
		os.Remove(staging)
		return errors.Wrapf(err, "diskcache: closing staging file for %s", key)
	}

	info, err := os.Stat(staging)
	if err != nil {
		os.Remove(staging)
		return errors.Wrapf(err, "diskcache: stat staging file for %s", key)
	}

	if err := os.Rename(staging, dest); err != nil {
		os.Remove(staging)
		return errors.Wrapf(err, "diskcache: committing %s", key)
	}

	c.mu.Lock()
	c.insertLocked(key, info.Size())
	c.mu.Unlock()
	return nil
}

func (c *Cache) insertLocked(key string, size int64) {
	if existing, ok := c.items[key]; ok {
		c.size -= existing.Value.(*entry).size
		c.ll.Remove(existing)
		delete(c.items, key)
	}

	for c.size+size > c.capacity {
		if c.ll.Len() == 0 {
			break // a single entry larger than capacity is still cached; nothing left to evict
		}
		c.evictOldestLocked()
	}

	el := c.ll.PushFront(&entry{key: key, size: size})
	c.items[key] = el
	c.size += size
}

func (c *Cache) evictOldestLocked() {
	oldest := c.ll.Back()
	if oldest == nil {
		return
	}
	ent := oldest.Value.(*entry)
	c.ll.Remove(oldest)
	delete(c.items, ent.key)
	c.size -= ent.size
	os.Remove(c.path(ent.key))
}

// Size returns the current total bytes resident in the cache.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
