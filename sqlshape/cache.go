package sqlshape

import (
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of shapes kept by the package cache.
const DefaultCacheSize = 1024

// Cache memoizes classification of constant command text.
type Cache struct {
	lru *lru.Cache[uint64, *Shape]
}

// NewCache returns a cache holding at most size shapes.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New[uint64, *Shape](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Classify returns the shape of text, classifying it on a miss.
// Entries are keyed by hash and confirmed against the source text.
func (c *Cache) Classify(text string) *Shape {
	key := xxhash.Sum64String(text)
	if s, ok := c.lru.Get(key); ok && s.Source == text {
		return s
	}
	s := ClassifyText(text)
	c.lru.Add(key, s)
	return s
}

// Len returns the number of cached shapes.
func (c *Cache) Len() int { return c.lru.Len() }

var shared atomic.Pointer[Cache]

func init() {
	c, err := NewCache(DefaultCacheSize)
	if err != nil {
		panic(err)
	}
	shared.Store(c)
}

// SetCacheSize replaces the package cache with an empty one of the given size.
func SetCacheSize(size int) error {
	c, err := NewCache(size)
	if err != nil {
		return err
	}
	shared.Store(c)
	return nil
}

// Lookup classifies text through the package cache.
func Lookup(text string) *Shape {
	return shared.Load().Classify(text)
}
