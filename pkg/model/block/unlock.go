package block

import (
	"github.com/iotaledger/hive.go/marshalutil"
)

// UnlockType denotes the type of an unlock.
type UnlockType byte

const (
	// UnlockSignature denotes a SignatureUnlock.
	UnlockSignature UnlockType = 0
	// UnlockReference denotes a ReferenceUnlock.
	UnlockReference UnlockType = 1
	// UnlockAlias denotes an AliasUnlock.
	UnlockAlias UnlockType = 2
	// UnlockNFT denotes an NFTUnlock.
	UnlockNFT UnlockType = 3
)

// Unlock is the interface for all unlocks.
type Unlock interface {
	// Type returns the type of the unlock.
	Type() UnlockType

	serialize(mu *marshalutil.MarshalUtil)
}

// ReferentialUnlock is an unlock which references a previous unlock.
type ReferentialUnlock interface {
	Unlock

	// Ref returns the index of the referenced input.
	Ref() uint16
}

// SignatureUnlock unlocks an input by a signature over the transaction essence.
type SignatureUnlock struct {
	Signature *Ed25519Signature
}

func (u *SignatureUnlock) Type() UnlockType {
	return UnlockSignature
}

func (u *SignatureUnlock) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockSignature))
	u.Signature.serialize(mu)
}

// ReferenceUnlock unlocks an input by referencing an earlier signature unlock
// which targets the same address.
type ReferenceUnlock struct {
	Reference uint16
}

func (u *ReferenceUnlock) Type() UnlockType {
	return UnlockReference
}

func (u *ReferenceUnlock) Ref() uint16 {
	return u.Reference
}

func (u *ReferenceUnlock) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockReference))
	mu.WriteUint16(u.Reference)
}

// AliasUnlock unlocks an input owned by an alias address by referencing
// the earlier input which state transitions the alias.
type AliasUnlock struct {
	Reference uint16
}

func (u *AliasUnlock) Type() UnlockType {
	return UnlockAlias
}

func (u *AliasUnlock) Ref() uint16 {
	return u.Reference
}

func (u *AliasUnlock) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockAlias))
	mu.WriteUint16(u.Reference)
}

// NFTUnlock unlocks an input owned by an NFT address by referencing
// the earlier input which moves the NFT.
type NFTUnlock struct {
	Reference uint16
}

func (u *NFTUnlock) Type() UnlockType {
	return UnlockNFT
}

func (u *NFTUnlock) Ref() uint16 {
	return u.Reference
}

func (u *NFTUnlock) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteByte(byte(UnlockNFT))
	mu.WriteUint16(u.Reference)
}

// Unlocks is a list of unlocks with the same cardinality as the transaction inputs.
type Unlocks []Unlock

func (unlocks Unlocks) serialize(mu *marshalutil.MarshalUtil) {
	mu.WriteUint16(uint16(len(unlocks)))
	for _, unlock := range unlocks {
		unlock.serialize(mu)
	}
}

func unlocksFromMarshalUtil(mu *marshalutil.MarshalUtil) (Unlocks, error) {
	count, err := mu.ReadUint16()
	if err != nil {
		return nil, err
	}

	unlocks := make(Unlocks, count)
	for i := range unlocks {
		if unlocks[i], err = unlockFromMarshalUtil(mu); err != nil {
			return nil, err
		}
	}

	return unlocks, nil
}

func unlockFromMarshalUtil(mu *marshalutil.MarshalUtil) (Unlock, error) {
	unlockType, err := mu.ReadByte()
	if err != nil {
		return nil, err
	}

	switch UnlockType(unlockType) {
	case UnlockSignature:
		signature, err := Ed25519SignatureFromMarshalUtil(mu)
		if err != nil {
			return nil, err
		}

		return &SignatureUnlock{Signature: signature}, nil

	case UnlockReference:
		reference, err := mu.ReadUint16()
		if err != nil {
			return nil, err
		}

		return &ReferenceUnlock{Reference: reference}, nil

	case UnlockAlias:
		reference, err := mu.ReadUint16()
		if err != nil {
			return nil, err
		}

		return &AliasUnlock{Reference: reference}, nil

	case UnlockNFT:
		reference, err := mu.ReadUint16()
		if err != nil {
			return nil, err
		}

		return &NFTUnlock{Reference: reference}, nil

	default:
		return nil, ErrUnknownUnlockType
	}
}
