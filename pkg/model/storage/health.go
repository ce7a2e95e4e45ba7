package storage

import (
	"github.com/pkg/errors"

	"github.com/iotaledger/hive.go/kvstore"

	"github.com/iotaledger/bee-sub000/pkg/common"
)

type StoreHealthTracker struct {
	store kvstore.KVStore
}

func NewStoreHealthTracker(store kvstore.KVStore) *StoreHealthTracker {
	s := &StoreHealthTracker{
		store: store.WithRealm([]byte{common.StorePrefixHealth}),
	}
	s.setDatabaseVersion(DBVersion)
	return s
}

func (s *StoreHealthTracker) MarkCorrupted() error {

	if err := s.store.Set([]byte("dbCorrupted"), []byte{}); err != nil {
		return errors.Wrap(NewDatabaseError(err), "failed to set database health status")
	}
	return s.store.Flush()
}

func (s *StoreHealthTracker) MarkTainted() error {

	if err := s.store.Set([]byte("dbTainted"), []byte{}); err != nil {
		return errors.Wrap(NewDatabaseError(err), "failed to set database health status")
	}
	return s.store.Flush()
}

func (s *StoreHealthTracker) MarkHealthy() error {

	if err := s.store.Delete([]byte("dbCorrupted")); err != nil {
		return errors.Wrap(NewDatabaseError(err), "failed to set database health status")
	}

	return nil
}

func (s *StoreHealthTracker) IsCorrupted() (bool, error) {

	contains, err := s.store.Has([]byte("dbCorrupted"))
	if err != nil {
		return true, errors.Wrap(NewDatabaseError(err), "failed to read database health status")
	}
	return contains, nil
}

func (s *StoreHealthTracker) IsTainted() (bool, error) {

	contains, err := s.store.Has([]byte("dbTainted"))
	if err != nil {
		return true, errors.Wrap(NewDatabaseError(err), "failed to read database health status")
	}
	return contains, nil
}

// DatabaseVersion returns the database version.
func (s *StoreHealthTracker) DatabaseVersion() (int, error) {

	value, err := s.store.Get([]byte("dbVersion"))
	if err != nil {
		return 0, errors.Wrap(NewDatabaseError(err), "failed to read database version")
	}

	if len(value) < 1 {
		return 0, errors.Wrap(NewDatabaseError(err), "failed to read database version")
	}

	return int(value[0]), nil
}

func (s *StoreHealthTracker) setDatabaseVersion(version byte) error {

	_, err := s.store.Get([]byte("dbVersion"))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		// Only create the entry, if it doesn't exist already (fresh database)
		if err := s.store.Set([]byte("dbVersion"), []byte{version}); err != nil {
			return errors.Wrap(NewDatabaseError(err), "failed to set database version")
		}
	}
	return nil
}

func (s *StoreHealthTracker) CheckCorrectDatabaseVersion() (bool, error) {

	value, err := s.store.Get([]byte("dbVersion"))
	if err != nil {
		return false, errors.Wrap(NewDatabaseError(err), "failed to read database version")
	}

	if len(value) > 0 {
		return value[0] == DBVersion, nil
	}

	return false, nil
}

// MarkDatabasesCorrupted marks all databases as corrupted.
func (s *Storage) MarkDatabasesCorrupted() error {

	var markingErr error
	for _, h := range s.healthTrackers {
		if err := h.MarkCorrupted(); err != nil {
			markingErr = err
		}
	}

	return markingErr
}

// MarkDatabasesTainted marks all databases as tainted.
func (s *Storage) MarkDatabasesTainted() error {

	var markingErr error
	for _, h := range s.healthTrackers {
		if err := h.MarkTainted(); err != nil {
			markingErr = err
		}
	}

	return markingErr
}

// MarkDatabasesHealthy marks all databases as healthy.
func (s *Storage) MarkDatabasesHealthy() error {

	var markingErr error
	for _, h := range s.healthTrackers {
		if err := h.MarkHealthy(); err != nil {
			markingErr = err
		}
	}

	return markingErr
}

// AreDatabasesCorrupted returns whether at least one database is corrupted.
func (s *Storage) AreDatabasesCorrupted() (bool, error) {

	for _, h := range s.healthTrackers {
		corrupted, err := h.IsCorrupted()
		if err != nil {
			return true, err
		}
		if corrupted {
			return true, nil
		}
	}
	return false, nil
}

// AreDatabasesTainted returns whether at least one database is tainted.
func (s *Storage) AreDatabasesTainted() (bool, error) {

	for _, h := range s.healthTrackers {
		tainted, err := h.IsTainted()
		if err != nil {
			return true, err
		}
		if tainted {
			return true, nil
		}
	}
	return false, nil
}

// CheckCorrectDatabasesVersion returns whether all databases are at the expected version.
func (s *Storage) CheckCorrectDatabasesVersion() (bool, error) {

	for _, h := range s.healthTrackers {
		correct, err := h.CheckCorrectDatabaseVersion()
		if err != nil {
			return false, err
		}
		if !correct {
			return false, nil
		}
	}
	return true, nil
}
