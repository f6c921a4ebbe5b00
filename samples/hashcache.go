package samples

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// HashCache memoizes content hashes. Keys combine path, size and
// modification time, so an edited file misses.
type HashCache interface {
	Get(key string) (string, bool)
	Put(key, sum string) error
	Close() error
}

// MemoryHashCache is a HashCache that lives as long as the process.
type MemoryHashCache struct {
	mu   sync.Mutex
	sums map[string]string
}

func NewMemoryHashCache() *MemoryHashCache {
	return &MemoryHashCache{sums: map[string]string{}}
}

func (c *MemoryHashCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sums[key]

	return s, ok
}

func (c *MemoryHashCache) Put(key, sum string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sums[key] = sum

	return nil
}

func (c *MemoryHashCache) Close() error { return nil }

// BadgerHashCache persists hashes in a badger database.
type BadgerHashCache struct {
	db *badger.DB
}

// OpenBadgerHashCache opens the cache in dir. An empty dir runs badger in
// memory.
func OpenBadgerHashCache(dir string) (*BadgerHashCache, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	opts = opts.WithLogger(badgerLogger{logrus.WithField("component", "hashcache")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open hash cache %s: %w", dir, err)
	}

	return &BadgerHashCache{db: db}, nil
}

func (c *BadgerHashCache) Get(key string) (string, bool) {
	var sum []byte

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		sum, err = item.ValueCopy(nil)

		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logrus.Debugf("samples: hash cache lookup %q: %v", key, err)
		}

		return "", false
	}

	return string(sum), true
}

func (c *BadgerHashCache) Put(key, sum string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(sum))
	})
}

func (c *BadgerHashCache) Close() error {
	return c.db.Close()
}

// badgerLogger routes badger output to logrus, demoting info to debug.
type badgerLogger struct {
	*logrus.Entry
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.Entry.Debugf(format, args...)
}

func hashKey(path string, fi os.FileInfo) string {
	return fmt.Sprintf("%s|%d|%d", path, fi.Size(), fi.ModTime().UnixNano())
}

// fileMD5 hashes the file at path, consulting cache first.
func fileMD5(path string, cache HashCache) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	key := hashKey(path, fi)
	if cache != nil {
		if sum, ok := cache.Get(key); ok {
			return sum, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	sum := hex.EncodeToString(h.Sum(nil))

	if cache != nil {
		if err := cache.Put(key, sum); err != nil {
			logrus.Debugf("samples: storing hash of %s: %v", path, err)
		}
	}

	return sum, nil
}
