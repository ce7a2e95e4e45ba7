package block

import (
	"bytes"
	"encoding/hex"
	"sort"

	"github.com/iotaledger/hive.go/marshalutil"
	"golang.org/x/crypto/blake2b"
)

// BlockID is the BLAKE2b-256 hash of a serialized block.
type BlockID [BlockIDLength]byte

// EmptyBlockID is the zero value block ID.
var EmptyBlockID = BlockID{}

// BlockIDFromBytes parses a block ID from the given bytes.
func BlockIDFromBytes(data []byte) (BlockID, error) {
	var blockID BlockID
	if len(data) != BlockIDLength {
		return blockID, ErrInvalidBytes
	}
	copy(blockID[:], data)

	return blockID, nil
}

// BlockIDFromHex parses a block ID from the given hex string.
func BlockIDFromHex(hexString string) (BlockID, error) {
	var blockID BlockID

	data, err := hex.DecodeString(hexString)
	if err != nil {
		return blockID, err
	}

	return BlockIDFromBytes(data)
}

// ToHex returns the hex representation of the block ID.
func (blockID BlockID) ToHex() string {
	return hex.EncodeToString(blockID[:])
}

func (blockID BlockID) String() string {
	return blockID.ToHex()
}

// BlockIDs is a list of block IDs.
type BlockIDs []BlockID

// ToHex returns the hex representations of the block IDs.
func (blockIDs BlockIDs) ToHex() []string {
	hexStrings := make([]string, len(blockIDs))
	for i, blockID := range blockIDs {
		hexStrings[i] = blockID.ToHex()
	}

	return hexStrings
}

// RemoveDupsAndSort returns a new list with duplicates removed and the IDs sorted in ascending lexical order.
func (blockIDs BlockIDs) RemoveDupsAndSort() BlockIDs {
	seen := make(map[BlockID]struct{}, len(blockIDs))
	result := make(BlockIDs, 0, len(blockIDs))
	for _, blockID := range blockIDs {
		if _, exists := seen[blockID]; exists {
			continue
		}
		seen[blockID] = struct{}{}
		result = append(result, blockID)
	}

	sort.Slice(result, func(i, j int) bool {
		return bytes.Compare(result[i][:], result[j][:]) < 0
	})

	return result
}

// syntacticallyValidate checks that the IDs are sorted in ascending lexical order and unique.
func (blockIDs BlockIDs) syntacticallyValidate() error {
	for i := 1; i < len(blockIDs); i++ {
		switch bytes.Compare(blockIDs[i-1][:], blockIDs[i][:]) {
		case 0:
			return ErrParentsNotUnique
		case 1:
			return ErrParentsNotSorted
		}
	}

	return nil
}

// Block is a vertex of the Tangle, referencing between one and eight parents.
type Block struct {
	// ProtocolVersion is the protocol version under which the block was issued.
	ProtocolVersion byte
	// Parents are the blocks this block directly approves.
	Parents BlockIDs
	// Payload is the optional payload of the block.
	Payload Payload
	// Nonce is the proof of work nonce of the block.
	Nonce uint64
}

// ID returns the BLAKE2b-256 hash of the serialized block.
func (b *Block) ID() BlockID {
	return BlockID(blake2b.Sum256(b.Bytes()))
}

// Bytes returns the serialized representation of the block.
func (b *Block) Bytes() []byte {
	mu := marshalutil.New()
	mu.WriteByte(b.ProtocolVersion)
	mu.WriteByte(byte(len(b.Parents)))
	for _, parent := range b.Parents {
		mu.WriteBytes(parent[:])
	}
	serializeOptionalPayload(mu, b.Payload)
	mu.WriteUint64(b.Nonce)

	return mu.Bytes()
}

// SyntacticallyValidate validates static properties of the block and its payload.
func (b *Block) SyntacticallyValidate() error {
	if len(b.Parents) < MinParentsCount || len(b.Parents) > MaxParentsCount {
		return ErrInvalidParentsCount
	}
	if err := b.Parents.syntacticallyValidate(); err != nil {
		return err
	}

	switch payload := b.Payload.(type) {
	case nil:
		return nil
	case *TaggedData:
		return payload.syntacticallyValidate()
	case *Transaction:
		return payload.SyntacticallyValidate()
	case *MilestonePayload:
		return payload.syntacticallyValidate()
	default:
		return ErrUnknownPayloadType
	}
}

// Transaction returns the transaction payload of the block, if it carries one.
func (b *Block) Transaction() *Transaction {
	if transaction, ok := b.Payload.(*Transaction); ok {
		return transaction
	}

	return nil
}

// Milestone returns the milestone payload of the block, if it carries one.
func (b *Block) Milestone() *MilestonePayload {
	if milestonePayload, ok := b.Payload.(*MilestonePayload); ok {
		return milestonePayload
	}

	return nil
}

// IsMilestone tells whether the block carries a milestone payload.
func (b *Block) IsMilestone() bool {
	return b.Milestone() != nil
}

// BlockFromBytes parses and syntactically validates a block from the given bytes.
func BlockFromBytes(data []byte) (*Block, error) {
	mu := marshalutil.New(data)

	b := &Block{}

	var err error
	if b.ProtocolVersion, err = mu.ReadByte(); err != nil {
		return nil, err
	}

	parentsCount, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}
	b.Parents = make(BlockIDs, parentsCount)
	for i := range b.Parents {
		parentBytes, err := mu.ReadBytes(BlockIDLength)
		if err != nil {
			return nil, err
		}
		copy(b.Parents[i][:], parentBytes)
	}

	if b.Payload, err = optionalPayloadFromMarshalUtil(mu); err != nil {
		return nil, err
	}
	if b.Nonce, err = mu.ReadUint64(); err != nil {
		return nil, err
	}

	if err := b.SyntacticallyValidate(); err != nil {
		return nil, err
	}

	return b, nil
}
