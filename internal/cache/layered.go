package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through memory to disk so narratives survive a restart.
// A disk hit is promoted to memory for whatever lifetime it has left.
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// NewLayeredCache creates a memory layer with memoryTTL over a disk layer at
// diskDir with diskTTL
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.memory.Get(key); ok {
		return val, true
	}

	entry, ok := c.disk.load(key)
	if !ok {
		return nil, false
	}
	if remaining := time.Until(entry.ExpiresAt); remaining > 0 {
		_ = c.memory.Set(key, entry.Value, remaining)
	}
	return entry.Value, true
}

// Set writes disk first; an entry only in memory would be lost on restart
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.disk.Set(key, value, ttl); err != nil {
		return err
	}
	return c.memory.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}
