package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/iotaledger/hive.go/syncutils"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// SolidEntryPoint is a block that is below the pruning index
// but still referenced by blocks in the future cone.
type SolidEntryPoint struct {
	BlockID block.BlockID
	Index   milestone.Index
}

// LexicalOrderedSolidEntryPoints are solid entry points
// ordered in lexical order by their BlockID.
type LexicalOrderedSolidEntryPoints []*SolidEntryPoint

func (l LexicalOrderedSolidEntryPoints) Len() int {
	return len(l)
}

func (l LexicalOrderedSolidEntryPoints) Less(i, j int) bool {
	return bytes.Compare(l[i].BlockID[:], l[j].BlockID[:]) < 0
}

func (l LexicalOrderedSolidEntryPoints) Swap(i, j int) {
	l[i], l[j] = l[j], l[i]
}

type SolidEntryPoints struct {
	entryPointsMap map[block.BlockID]milestone.Index

	// Status
	statusMutex syncutils.RWMutex
	modified    bool
}

func NewSolidEntryPoints() *SolidEntryPoints {
	return &SolidEntryPoints{
		entryPointsMap: make(map[block.BlockID]milestone.Index),
	}
}

func (s *SolidEntryPoints) copy() []*SolidEntryPoint {
	result := make([]*SolidEntryPoint, 0, len(s.entryPointsMap))

	for blockID, msIndex := range s.entryPointsMap {
		result = append(result, &SolidEntryPoint{
			BlockID: blockID,
			Index:   msIndex,
		})
	}

	return result
}

func (s *SolidEntryPoints) Contains(blockID block.BlockID) bool {
	_, exists := s.entryPointsMap[blockID]
	return exists
}

func (s *SolidEntryPoints) Index(blockID block.BlockID) (milestone.Index, bool) {
	index, exists := s.entryPointsMap[blockID]
	return index, exists
}

func (s *SolidEntryPoints) Add(blockID block.BlockID, milestoneIndex milestone.Index) {
	if _, exists := s.entryPointsMap[blockID]; !exists {
		s.entryPointsMap[blockID] = milestoneIndex
		s.SetModified(true)
	}
}

func (s *SolidEntryPoints) Clear() {
	s.entryPointsMap = make(map[block.BlockID]milestone.Index)
	s.SetModified(true)
}

func (s *SolidEntryPoints) IsModified() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()

	return s.modified
}

func (s *SolidEntryPoints) SetModified(modified bool) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()

	s.modified = modified
}

// Sorted returns the solid entry points sorted lexicographically by their BlockID.
func (s *SolidEntryPoints) Sorted() []*SolidEntryPoint {

	var sortedSolidEntryPoints LexicalOrderedSolidEntryPoints = s.copy()
	sort.Sort(sortedSolidEntryPoints)
	return sortedSolidEntryPoints
}

func SolidEntryPointsFromBytes(solidEntryPointsBytes []byte) (*SolidEntryPoints, error) {
	s := NewSolidEntryPoints()

	bytesReader := bytes.NewReader(solidEntryPointsBytes)

	var err error

	solidEntryPointsCount := len(solidEntryPointsBytes) / (block.BlockIDLength + 4)
	for i := 0; i < solidEntryPointsCount; i++ {
		blockIDBuf := make([]byte, block.BlockIDLength)
		var msIndex uint32

		err = binary.Read(bytesReader, binary.LittleEndian, blockIDBuf)
		if err != nil {
			return nil, fmt.Errorf("solidEntryPoints: %w", err)
		}

		err = binary.Read(bytesReader, binary.LittleEndian, &msIndex)
		if err != nil {
			return nil, fmt.Errorf("solidEntryPoints: %w", err)
		}

		blockID := block.BlockID{}
		copy(blockID[:], blockIDBuf)

		s.Add(blockID, milestone.Index(msIndex))
	}

	return s, nil
}

func (s *SolidEntryPoints) Bytes() []byte {

	buf := bytes.NewBuffer(make([]byte, 0, len(s.entryPointsMap)*(block.BlockIDLength+4)))

	for _, sep := range s.Sorted() {
		err := binary.Write(buf, binary.LittleEndian, sep.BlockID[:])
		if err != nil {
			return nil
		}

		err = binary.Write(buf, binary.LittleEndian, uint32(sep.Index))
		if err != nil {
			return nil
		}
	}

	return buf.Bytes()
}

func (s *SolidEntryPoints) SHA256Sum() ([]byte, error) {

	sepHash := sha256.New()

	// compute the sha256 of the solid entry points byte representation
	if err := binary.Write(sepHash, binary.LittleEndian, s.Bytes()); err != nil {
		return nil, fmt.Errorf("unable to serialize solid entry points: %w", err)
	}

	return sepHash.Sum(nil), nil
}
