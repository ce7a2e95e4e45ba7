package block

import (
	"encoding/hex"

	"github.com/iotaledger/hive.go/marshalutil"
	"golang.org/x/crypto/blake2b"
)

// ChainID identifies a chain constrained output across transactions.
// It is either an AliasID, an NFTID or a FoundryID.
type ChainID interface {
	// Empty tells whether the ID is the zero value placeholder of a genesis output.
	Empty() bool
	// Key returns a string representation usable as a map key.
	Key() string
	// ToAddress returns the address this chain ID represents, if any.
	ToAddress() Address
}

// AliasID is the identifier of an alias account.
// It is the BLAKE2b-160 hash of the output ID which created the account.
type AliasID [AliasIDLength]byte

// AliasIDFromOutputID derives the alias ID from the output ID which created the alias account.
func AliasIDFromOutputID(outputID OutputID) AliasID {
	return AliasID(blake2b160(outputID[:]))
}

func (aliasID AliasID) Empty() bool {
	return aliasID == AliasID{}
}

func (aliasID AliasID) Key() string {
	return string(append([]byte{byte(OutputAlias)}, aliasID[:]...))
}

func (aliasID AliasID) ToAddress() Address {
	address := AliasAddress(aliasID)

	return &address
}

func (aliasID AliasID) String() string {
	return hex.EncodeToString(aliasID[:])
}

// NFTID is the identifier of an NFT.
// It is the BLAKE2b-160 hash of the output ID which minted the NFT.
type NFTID [NFTIDLength]byte

// NFTIDFromOutputID derives the NFT ID from the output ID which minted the NFT.
func NFTIDFromOutputID(outputID OutputID) NFTID {
	return NFTID(blake2b160(outputID[:]))
}

func (nftID NFTID) Empty() bool {
	return nftID == NFTID{}
}

func (nftID NFTID) Key() string {
	return string(append([]byte{byte(OutputNFT)}, nftID[:]...))
}

func (nftID NFTID) ToAddress() Address {
	address := NFTAddress(nftID)

	return &address
}

func (nftID NFTID) String() string {
	return hex.EncodeToString(nftID[:])
}

// FoundryID is the identifier of a foundry.
// It is the concatenation of the serialized controlling alias address,
// the serial number and the token scheme type.
type FoundryID [FoundryIDLength]byte

// FoundryIDFromParts computes the foundry ID from the controlling alias address,
// the serial number and the token scheme type.
func FoundryIDFromParts(aliasAddress *AliasAddress, serialNumber uint32, tokenSchemeType TokenSchemeType) FoundryID {
	mu := marshalutil.New(FoundryIDLength)
	aliasAddress.serialize(mu)
	mu.WriteUint32(serialNumber)
	mu.WriteByte(byte(tokenSchemeType))

	var foundryID FoundryID
	copy(foundryID[:], mu.Bytes())

	return foundryID
}

// FoundryID is always computed from the foundry fields, so it is never empty.
func (foundryID FoundryID) Empty() bool {
	return false
}

func (foundryID FoundryID) Key() string {
	return string(append([]byte{byte(OutputFoundry)}, foundryID[:]...))
}

// Foundries are not addressable.
func (foundryID FoundryID) ToAddress() Address {
	return nil
}

func (foundryID FoundryID) String() string {
	return hex.EncodeToString(foundryID[:])
}

func blake2b160(data []byte) [20]byte {
	hash, err := blake2b.New(20, nil)
	if err != nil {
		panic(err)
	}
	hash.Write(data)

	var sum [20]byte
	copy(sum[:], hash.Sum(nil))

	return sum
}
