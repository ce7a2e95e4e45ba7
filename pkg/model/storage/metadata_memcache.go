package storage

import (
	"github.com/iotaledger/bee-sub000/pkg/model/block"
)

// CachedMetadataFunc returns a cached block metadata for the given block ID or nil if it doesn't exist.
type CachedMetadataFunc func(blockID block.BlockID) (*CachedMetadata, error)

type MetadataMemcache struct {
	cachedMetadataFunc CachedMetadataFunc
	cachedBlockMetas   map[block.BlockID]*CachedMetadata
}

// NewMetadataMemcache creates a new MetadataMemcache instance.
func NewMetadataMemcache(cachedMetadataFunc CachedMetadataFunc) *MetadataMemcache {
	return &MetadataMemcache{
		cachedMetadataFunc: cachedMetadataFunc,
		cachedBlockMetas:   make(map[block.BlockID]*CachedMetadata),
	}
}

// Cleanup releases all the cached objects that have been used.
// This MUST be called by the user at the end.
func (c *MetadataMemcache) Cleanup(forceRelease bool) {

	// release all block metadata at the end
	for _, cachedBlockMeta := range c.cachedBlockMetas {
		cachedBlockMeta.Release(forceRelease) // meta -1
	}
	c.cachedBlockMetas = make(map[block.BlockID]*CachedMetadata)
}

// CachedBlockMetadata returns a cached metadata object.
// meta +1
func (c *MetadataMemcache) CachedBlockMetadata(blockID block.BlockID) (*CachedMetadata, error) {
	var err error

	// load up the block metadata
	cachedBlockMeta, exists := c.cachedBlockMetas[blockID]
	if !exists {
		cachedBlockMeta, err = c.cachedMetadataFunc(blockID) // meta +1 (this is the one that gets cleared by "Cleanup")
		if err != nil {
			return nil, err
		}
		if cachedBlockMeta == nil {
			return nil, nil
		}

		// add the cachedObject to the map, it will be released by calling "Cleanup" at the end
		c.cachedBlockMetas[blockID] = cachedBlockMeta
	}

	return cachedBlockMeta.Retain(), nil // meta +1
}
