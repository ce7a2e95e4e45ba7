package keymanager

import (
	"bytes"
	"crypto/ed25519"

	"github.com/iotaledger/bee-sub000/pkg/model/block"
	"github.com/iotaledger/bee-sub000/pkg/model/milestone"
)

// KeyRange is a public key of a milestone signer
// valid for a certain range of milestone indexes.
type KeyRange struct {
	PublicKey  ed25519.PublicKey
	StartIndex milestone.Index
	EndIndex   milestone.Index
}

// KeyManager provides the applicable public keys
// of the milestone signers for certain milestone indexes.
type KeyManager struct {
	keyRanges []*KeyRange
}

// New returns a new KeyManager.
func New() *KeyManager {
	return &KeyManager{}
}

// AddKeyRange adds a new public key to the manager with a given start and end index.
// An end index of 0 means the key is valid forever.
func (k *KeyManager) AddKeyRange(publicKey ed25519.PublicKey, startIndex milestone.Index, endIndex milestone.Index) {

	k.keyRanges = append(k.keyRanges, &KeyRange{
		PublicKey:  publicKey,
		StartIndex: startIndex,
		EndIndex:   endIndex,
	})
}

// KeyRanges returns all registered key ranges.
func (k *KeyManager) KeyRanges() []*KeyRange {
	return k.keyRanges
}

// GetPublicKeysForMilestoneIndex returns the public keys that are valid for the given milestone index.
func (k *KeyManager) GetPublicKeysForMilestoneIndex(msIndex milestone.Index) []ed25519.PublicKey {
	var pubKeys []ed25519.PublicKey

	for _, keyRange := range k.keyRanges {
		if keyRange.StartIndex <= msIndex {
			if keyRange.EndIndex >= msIndex || keyRange.StartIndex == keyRange.EndIndex {
				// startIndex == endIndex means the key is valid forever
				pubKeys = append(pubKeys, keyRange.PublicKey)
			}
			continue
		}
	}

	return pubKeys
}

// GetPublicKeysSetForMilestoneIndex returns a set of the public keys that are valid for the given milestone index.
func (k *KeyManager) GetPublicKeysSetForMilestoneIndex(msIndex milestone.Index) map[block.MilestonePublicKey]struct{} {
	pubKeys := k.GetPublicKeysForMilestoneIndex(msIndex)

	result := map[block.MilestonePublicKey]struct{}{}
	for _, pubKey := range pubKeys {
		var msPubKey block.MilestonePublicKey
		copy(msPubKey[:], pubKey)
		result[msPubKey] = struct{}{}
	}

	return result
}

// GetMilestonePublicKeyMappingForMilestoneIndex returns a mapping of the public keys to their private keys
// that are valid for the given milestone index, limited by the key count of the milestone signing scheme.
func (k *KeyManager) GetMilestonePublicKeyMappingForMilestoneIndex(msIndex milestone.Index, privateKeys []ed25519.PrivateKey, milestonePublicKeysCount int) block.MilestonePublicKeyMapping {
	pubKeys := k.GetPublicKeysForMilestoneIndex(msIndex)

	result := block.MilestonePublicKeyMapping{}
	for _, pubKey := range pubKeys {
		for _, privKey := range privateKeys {
			privPubKey, ok := privKey.Public().(ed25519.PublicKey)
			if !ok {
				continue
			}

			if bytes.Equal(privPubKey, pubKey) {
				var msPubKey block.MilestonePublicKey
				copy(msPubKey[:], pubKey)

				result[msPubKey] = privKey

				if len(result) == milestonePublicKeysCount {
					return result
				}
			}
		}
	}

	return result
}
