package dag

import (
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
	"github.com/iotaledger/bee-sub000/pkg/model/storage"
)

type MemcachedTraverserStorage struct {
	traverserStorage TraverserStorage
	metadataMemcache *storage.MetadataMemcache
}

func NewMemcachedTraverserStorage(traverserStorage TraverserStorage, metadataMemcache *storage.MetadataMemcache) *MemcachedTraverserStorage {
	return &MemcachedTraverserStorage{
		traverserStorage: traverserStorage,
		metadataMemcache: metadataMemcache,
	}
}

func (m *MemcachedTraverserStorage) CachedBlockMetadata(blockID block.BlockID) (*storage.CachedMetadata, error) {
	return m.metadataMemcache.CachedBlockMetadata(blockID)
}

func (m *MemcachedTraverserStorage) ChildrenBlockIDs(blockID block.BlockID, iteratorOptions ...storage.IteratorOption) (block.BlockIDs, error) {
	return m.traverserStorage.ChildrenBlockIDs(blockID, iteratorOptions...)
}

func (m *MemcachedTraverserStorage) SolidEntryPointsContain(blockID block.BlockID) (bool, error) {
	return m.traverserStorage.SolidEntryPointsContain(blockID)
}

func (m *MemcachedTraverserStorage) SolidEntryPointsIndex(blockID block.BlockID) (milestone.Index, bool, error) {
	return m.traverserStorage.SolidEntryPointsIndex(blockID)
}

func (m *MemcachedTraverserStorage) Cleanup(forceRelease bool) {
	m.metadataMemcache.Cleanup(forceRelease)
}

type MemcachedParentsTraverserStorage struct {
	parentsTraverserStorage ParentsTraverserStorage
	metadataMemcache        *storage.MetadataMemcache
}

func NewMemcachedParentsTraverserStorage(parentsTraverserStorage ParentsTraverserStorage, metadataMemcache *storage.MetadataMemcache) *MemcachedParentsTraverserStorage {
	return &MemcachedParentsTraverserStorage{
		parentsTraverserStorage: parentsTraverserStorage,
		metadataMemcache:        metadataMemcache,
	}
}

func (m *MemcachedParentsTraverserStorage) CachedBlockMetadata(blockID block.BlockID) (*storage.CachedMetadata, error) {
	return m.metadataMemcache.CachedBlockMetadata(blockID)
}

func (m *MemcachedParentsTraverserStorage) SolidEntryPointsContain(blockID block.BlockID) (bool, error) {
	return m.parentsTraverserStorage.SolidEntryPointsContain(blockID)
}

func (m *MemcachedParentsTraverserStorage) SolidEntryPointsIndex(blockID block.BlockID) (milestone.Index, bool, error) {
	return m.parentsTraverserStorage.SolidEntryPointsIndex(blockID)
}

func (m *MemcachedParentsTraverserStorage) Cleanup(forceRelease bool) {
	m.metadataMemcache.Cleanup(forceRelease)
}

type MemcachedChildrenTraverserStorage struct {
	childrenTraverserStorage ChildrenTraverserStorage
	metadataMemcache         *storage.MetadataMemcache
}

func NewMemcachedChildrenTraverserStorage(childrenTraverserStorage ChildrenTraverserStorage, metadataMemcache *storage.MetadataMemcache) *MemcachedChildrenTraverserStorage {
	return &MemcachedChildrenTraverserStorage{
		childrenTraverserStorage: childrenTraverserStorage,
		metadataMemcache:         metadataMemcache,
	}
}

func (m *MemcachedChildrenTraverserStorage) CachedBlockMetadata(blockID block.BlockID) (*storage.CachedMetadata, error) {
	return m.metadataMemcache.CachedBlockMetadata(blockID)
}

func (m *MemcachedChildrenTraverserStorage) ChildrenBlockIDs(blockID block.BlockID, iteratorOptions ...storage.IteratorOption) (block.BlockIDs, error) {
	return m.childrenTraverserStorage.ChildrenBlockIDs(blockID, iteratorOptions...)
}

func (m *MemcachedChildrenTraverserStorage) Cleanup(forceRelease bool) {
	m.metadataMemcache.Cleanup(forceRelease)
}
