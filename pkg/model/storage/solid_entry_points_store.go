package storage

import (
	"github.com/pkg/errors"

	"github.com/iotaledger/hive.go/kvstore"

	"github.com/iotaledger/bee-sub000/pkg/common"
	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

var (
	ErrSolidEntryPointsAlreadyInitialized = errors.New("solidEntryPoints already initialized")
	ErrSolidEntryPointsNotInitialized     = errors.New("solidEntryPoints not initialized")
)

func (s *Storage) configureSolidEntryPointsStore(store kvstore.KVStore) {
	s.solidEntryPointsStore = store.WithRealm([]byte{common.StorePrefixSolidEntryPoints})
}

func (s *Storage) ReadLockSolidEntryPoints() {
	s.solidEntryPointsLock.RLock()
}

func (s *Storage) ReadUnlockSolidEntryPoints() {
	s.solidEntryPointsLock.RUnlock()
}

func (s *Storage) WriteLockSolidEntryPoints() {
	s.solidEntryPointsLock.Lock()
}

func (s *Storage) WriteUnlockSolidEntryPoints() {
	s.solidEntryPointsLock.Unlock()
}

func (s *Storage) loadSolidEntryPoints() {
	s.WriteLockSolidEntryPoints()
	defer s.WriteUnlockSolidEntryPoints()

	if s.solidEntryPoints != nil {
		panic(ErrSolidEntryPointsAlreadyInitialized)
	}

	points, err := s.readSolidEntryPoints()
	if points != nil && err == nil {
		s.solidEntryPoints = points
	} else {
		s.solidEntryPoints = NewSolidEntryPoints()
	}
}

func (s *Storage) SolidEntryPointsContain(blockID block.BlockID) (bool, error) {
	s.ReadLockSolidEntryPoints()
	defer s.ReadUnlockSolidEntryPoints()

	if s.solidEntryPoints == nil {
		return false, ErrSolidEntryPointsNotInitialized
	}
	return s.solidEntryPoints.Contains(blockID), nil
}

func (s *Storage) SolidEntryPointsIndex(blockID block.BlockID) (milestone.Index, bool, error) {
	s.ReadLockSolidEntryPoints()
	defer s.ReadUnlockSolidEntryPoints()

	if s.solidEntryPoints == nil {
		return 0, false, ErrSolidEntryPointsNotInitialized
	}

	index, contains := s.solidEntryPoints.Index(blockID)
	return index, contains, nil
}

// WriteLockSolidEntryPoints must be held while entering this function.
func (s *Storage) SolidEntryPointsAdd(blockID block.BlockID, milestoneIndex milestone.Index) {
	if s.solidEntryPoints == nil {
		panic(ErrSolidEntryPointsNotInitialized)
	}
	s.solidEntryPoints.Add(blockID, milestoneIndex)
}

// WriteLockSolidEntryPoints must be held while entering this function.
func (s *Storage) ResetSolidEntryPoints() {
	if s.solidEntryPoints == nil {
		panic(ErrSolidEntryPointsNotInitialized)
	}
	s.solidEntryPoints.Clear()
}

// WriteLockSolidEntryPoints must be held while entering this function.
func (s *Storage) StoreSolidEntryPoints() error {
	if s.solidEntryPoints == nil {
		panic(ErrSolidEntryPointsNotInitialized)
	}
	return s.storeSolidEntryPoints(s.solidEntryPoints)
}

func (s *Storage) storeSolidEntryPoints(points *SolidEntryPoints) error {
	if points.IsModified() {

		if err := s.solidEntryPointsStore.Set([]byte("solidEntryPoints"), points.Bytes()); err != nil {
			return errors.Wrap(NewDatabaseError(err), "failed to store solid entry points")
		}

		points.SetModified(false)
	}

	return nil
}

func (s *Storage) readSolidEntryPoints() (*SolidEntryPoints, error) {
	value, err := s.solidEntryPointsStore.Get([]byte("solidEntryPoints"))
	if err != nil {
		if !errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, errors.Wrap(NewDatabaseError(err), "failed to retrieve solid entry points")
		}
		return nil, nil
	}

	points, err := SolidEntryPointsFromBytes(value)
	if err != nil {
		return nil, errors.Wrap(NewDatabaseError(err), "failed to convert solid entry points")
	}
	return points, nil
}
