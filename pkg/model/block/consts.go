package block

import (
	"github.com/iotaledger/hive.go/serializer/v2"
)

const (
	// ProtocolVersion is the version of the protocol this package implements.
	ProtocolVersion = 2

	// TokenSupply is the IOTA token supply.
	TokenSupply = 2_779_530_283_277_761

	// BlockIDLength is the length of a block ID.
	BlockIDLength = 32
	// TransactionIDLength is the length of a transaction ID.
	TransactionIDLength = 32
	// OutputIDLength is the length of an output ID (transaction ID plus big endian output index).
	OutputIDLength = TransactionIDLength + serializer.UInt16ByteSize
	// MilestoneIDLength is the length of a milestone ID.
	MilestoneIDLength = 32

	// AliasIDLength is the length of an alias ID (BLAKE2b-160 of the genesis output ID).
	AliasIDLength = 20
	// NFTIDLength is the length of an NFT ID (BLAKE2b-160 of the genesis output ID).
	NFTIDLength = 20
	// FoundryIDLength is the length of a foundry ID (alias address, serial number, token scheme type).
	FoundryIDLength = AliasAddressSerializedBytesSize + serializer.UInt32ByteSize + serializer.OneByte
	// NativeTokenIDLength is the length of a native token ID (the foundry ID of the minting foundry).
	NativeTokenIDLength = FoundryIDLength

	// MinParentsCount is the minimum amount of parents in a block.
	MinParentsCount = 1
	// MaxParentsCount is the maximum amount of parents in a block.
	MaxParentsCount = 8

	// MinInputsCount is the minimum amount of inputs in a transaction.
	MinInputsCount = 1
	// MaxInputsCount is the maximum amount of inputs in a transaction.
	MaxInputsCount = 128
	// MinOutputsCount is the minimum amount of outputs in a transaction.
	MinOutputsCount = 1
	// MaxOutputsCount is the maximum amount of outputs in a transaction.
	MaxOutputsCount = 128

	// MaxNativeTokensCount is the maximum amount of native tokens on the input or output side of a transaction.
	MaxNativeTokensCount = 64

	// MaxTagLength is the maximum length of a tag.
	MaxTagLength = 64
	// MaxMetadataLength is the maximum length of metadata in features and payloads.
	MaxMetadataLength = 8192

	// MaxMilestoneSignaturesCount is the maximum amount of signatures in a milestone payload.
	MaxMilestoneSignaturesCount = 255
)

// PayloadType denotes the type of a payload.
type PayloadType uint32

const (
	// PayloadTaggedData denotes a TaggedData payload.
	PayloadTaggedData PayloadType = 5
	// PayloadTransaction denotes a Transaction payload.
	PayloadTransaction PayloadType = 6
	// PayloadMilestone denotes a Milestone payload.
	PayloadMilestone PayloadType = 7
)
