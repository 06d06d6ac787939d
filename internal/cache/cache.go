// Package cache keeps parsed replay datasets in memory so concurrent
// sessions over the same race share one immutable dataset instead of
// re-reading the archive.
package cache

import (
	"sync"

	"github.com/alexkamer/Pit-Wall-Pro/internal/replay"
)

// DatasetCache maps race IDs to loaded datasets. Datasets are read-only
// after load so handing the same pointer to many sessions is safe.
type DatasetCache struct {
	m        sync.RWMutex
	datasets map[uint]*replay.Dataset
}

func NewDatasetCache() *DatasetCache {
	return &DatasetCache{
		datasets: make(map[uint]*replay.Dataset),
	}
}

// Get returns the cached dataset for a race, if present.
func (c *DatasetCache) Get(raceID uint) (*replay.Dataset, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	ds, ok := c.datasets[raceID]
	return ds, ok
}

// Put stores a dataset for a race, replacing any previous entry.
func (c *DatasetCache) Put(raceID uint, ds *replay.Dataset) {
	c.m.Lock()
	defer c.m.Unlock()
	c.datasets[raceID] = ds
}

// GetOrLoad returns the cached dataset or loads it via the supplied
// loader, caching the result. Concurrent callers for the same race may
// both invoke load; last write wins, which is harmless for read-only
// datasets.
func (c *DatasetCache) GetOrLoad(raceID uint, load func(uint) (*replay.Dataset, error)) (*replay.Dataset, error) {
	if ds, ok := c.Get(raceID); ok {
		return ds, nil
	}
	ds, err := load(raceID)
	if err != nil {
		return nil, err
	}
	c.Put(raceID, ds)
	return ds, nil
}

// Evict removes a race from the cache.
func (c *DatasetCache) Evict(raceID uint) {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.datasets, raceID)
}

// Len returns the number of cached datasets.
func (c *DatasetCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.datasets)
}

// Reset drops all cached datasets.
func (c *DatasetCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.datasets = make(map[uint]*replay.Dataset)
}
