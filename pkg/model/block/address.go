package block

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"

	"github.com/iotaledger/hive.go/marshalutil"
	"golang.org/x/crypto/blake2b"
)

// AddressType denotes the type of an address.
type AddressType byte

const (
	// AddressEd25519 denotes an Ed25519 address.
	AddressEd25519 AddressType = 0
	// AddressAlias denotes an alias address.
	AddressAlias AddressType = 8
	// AddressNFT denotes an NFT address.
	AddressNFT AddressType = 16
)

const (
	// Ed25519AddressBytesLength is the length of an Ed25519 address.
	Ed25519AddressBytesLength = blake2b.Size256
	// Ed25519AddressSerializedBytesSize is the size of a serialized Ed25519 address including its type.
	Ed25519AddressSerializedBytesSize = serializedTypeByteSize + Ed25519AddressBytesLength

	// AliasAddressBytesLength is the length of an alias address.
	AliasAddressBytesLength = AliasIDLength
	// AliasAddressSerializedBytesSize is the size of a serialized alias address including its type.
	AliasAddressSerializedBytesSize = serializedTypeByteSize + AliasAddressBytesLength

	// NFTAddressBytesLength is the length of an NFT address.
	NFTAddressBytesLength = NFTIDLength
	// NFTAddressSerializedBytesSize is the size of a serialized NFT address including its type.
	NFTAddressSerializedBytesSize = serializedTypeByteSize + NFTAddressBytesLength

	serializedTypeByteSize = 1
)

// Address is the interface for all addresses.
type Address interface {
	// Type returns the type of the address.
	Type() AddressType
	// Bytes returns the serialized address including its type byte.
	Bytes() []byte
	// Key returns a string representation usable as a map key.
	Key() string
	// Equal checks whether the other address is equal to this one.
	Equal(other Address) bool
	// String returns a human readable representation of the address.
	String() string

	serialize(mu *marshalutil.MarshalUtil)
}

// Ed25519Address is the BLAKE2b-256 hash of an Ed25519 public key.
type Ed25519Address [Ed25519AddressBytesLength]byte

// Ed25519AddressFromPubKey returns the address belonging to the given Ed25519 public key.
func Ed25519AddressFromPubKey(pubKey ed25519.PublicKey) *Ed25519Address {
	address := Ed25519Address(blake2b.Sum256(pubKey))

	return &address
}

func (addr *Ed25519Address) Type() AddressType {
	return AddressEd25519
}

func (addr *Ed25519Address) Bytes() []byte {
	return append([]byte{byte(AddressEd25519)}, addr[:]...)
}

func (addr *Ed25519Address) Key() string {
	return string(addr.Bytes())
}

func (addr *Ed25519Address) Equal(other Address) bool {
	otherAddr, ok := other.(*Ed25519Address)
	if !ok {
		return false
	}

	return *addr == *otherAddr
}

func (addr *Ed25519Address) String() string {
	return hex.EncodeToString(addr[:])
}

func (addr *Ed25519Address) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(AddressEd25519))
	mu.WriteBytes(addr[:])
}

// AliasAddress is the address of an alias account.
type AliasAddress [AliasAddressBytesLength]byte

func (addr *AliasAddress) Type() AddressType {
	return AddressAlias
}

func (addr *AliasAddress) Bytes() []byte {
	return append([]byte{byte(AddressAlias)}, addr[:]...)
}

func (addr *AliasAddress) Key() string {
	return string(addr.Bytes())
}

func (addr *AliasAddress) Equal(other Address) bool {
	otherAddr, ok := other.(*AliasAddress)
	if !ok {
		return false
	}

	return *addr == *otherAddr
}

func (addr *AliasAddress) String() string {
	return hex.EncodeToString(addr[:])
}

func (addr *AliasAddress) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(AddressAlias))
	mu.WriteBytes(addr[:])
}

// AliasID returns the alias ID this address belongs to.
func (addr *AliasAddress) AliasID() AliasID {
	return AliasID(*addr)
}

// NFTAddress is the address of an NFT.
type NFTAddress [NFTAddressBytesLength]byte

func (addr *NFTAddress) Type() AddressType {
	return AddressNFT
}

func (addr *NFTAddress) Bytes() []byte {
	return append([]byte{byte(AddressNFT)}, addr[:]...)
}

func (addr *NFTAddress) Key() string {
	return string(addr.Bytes())
}

func (addr *NFTAddress) Equal(other Address) bool {
	otherAddr, ok := other.(*NFTAddress)
	if !ok {
		return false
	}

	return *addr == *otherAddr
}

func (addr *NFTAddress) String() string {
	return hex.EncodeToString(addr[:])
}

func (addr *NFTAddress) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(AddressNFT))
	mu.WriteBytes(addr[:])
}

// NFTID returns the NFT ID this address belongs to.
func (addr *NFTAddress) NFTID() NFTID {
	return NFTID(*addr)
}

// AddressFromMarshalUtil parses an address from the given MarshalUtil.
func AddressFromMarshalUtil(mu *marshalutil.MarshalUtil) (Address, error) {
	addressType, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	switch AddressType(addressType) {
	case AddressEd25519:
		addressBytes, err := mu.ReadBytes(Ed25519AddressBytesLength)
		if err != nil {
			return nil, err
		}
		address := &Ed25519Address{}
		copy(address[:], addressBytes)

		return address, nil

	case AddressAlias:
		addressBytes, err := mu.ReadBytes(AliasAddressBytesLength)
		if err != nil {
			return nil, err
		}
		address := &AliasAddress{}
		copy(address[:], addressBytes)

		return address, nil

	case AddressNFT:
		addressBytes, err := mu.ReadBytes(NFTAddressBytesLength)
		if err != nil {
			return nil, err
		}
		address := &NFTAddress{}
		copy(address[:], addressBytes)

		return address, nil

	default:
		return nil, ErrUnknownAddressType
	}
}

// AddressFromBytes parses an address from the given bytes.
func AddressFromBytes(data []byte) (Address, error) {
	return AddressFromMarshalUtil(marshalutil.New(data))
}

func addressesEqual(a Address, b Address) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return bytes.Equal(a.Bytes(), b.Bytes())
}
